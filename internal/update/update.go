package update

import (
	"github.com/danielpatrickdp/ignition/internal/belief"
	"github.com/danielpatrickdp/ignition/internal/broadcast"
	"github.com/danielpatrickdp/ignition/internal/gate"
	"github.com/danielpatrickdp/ignition/internal/message"
	"github.com/danielpatrickdp/ignition/internal/sensory"
)

// #region update-function
// Update is a pure function that runs one event through modulation, local
// update, message generation, filtering, broadcast and the ignition decision.
// It never mutates its inputs.
func Update(in Input, config Config) Result {
	n := len(in.Prior)

	// 1. Sensory modulation
	sens := sensory.Modulate(in.Likelihood, in.Action, config.Sensory)
	lik := sens.Modulated

	// 2. Local update. The posterior is built from the prior, not the running belief.
	before := append([]float64(nil), in.Belief...)
	u := belief.Uncertainty(before)
	gBefore := belief.FreeEnergy(before, in.Prior, lik)

	after := belief.BayesUpdate(belief.Normalize(in.Prior), belief.Normalize(lik))
	gLocal := belief.FreeEnergy(after, in.Prior, lik)

	// 3. Messages: local transition, then task reinterpretation
	biased := message.TaskBiased(after, in.Task, config.Message)
	msgs := []message.Message{
		message.Generate(before, after, in.Task, message.LevelLocal, config.Message),
		message.Generate(after, biased, in.Task, message.LevelTask, config.Message),
	}

	// 4. Filter and coherence
	g := gate.NewGate(config.Gate)
	filter := g.Filter(msgs, u)
	coherence := gate.SurvivorCoherence(filter.Survivors)

	// 5. Broadcast
	deltas := make([][]float64, len(filter.Survivors))
	etas := make([]float64, len(filter.Survivors))
	for i, s := range filter.Survivors {
		deltas[i] = s.Delta
		etas[i] = s.Efficiency
	}
	coarse := broadcast.Combine(deltas, etas)
	expanded := broadcast.Expand(coarse, n, config.Gate.RGLevel)
	qBroadcast := broadcast.Apply(after, expanded, config.Broadcast.Lambda)
	gBroadcast := belief.FreeEnergy(qBroadcast, in.Prior, lik)

	fe := FreeEnergy{
		Before:         gBefore,
		AfterLocal:     gLocal,
		AfterBroadcast: gBroadcast,
		DeltaLocal:     gBefore - gLocal,
		DeltaBroadcast: gBefore - gBroadcast,
	}

	// 6. Ignition
	decision := g.Evaluate(len(filter.Survivors), coherence, fe.DeltaBroadcast)

	next := after
	if decision.Ignited {
		next = qBroadcast
	}

	return Result{
		Sensory:     sens,
		Uncertainty: u,
		Before:      before,
		After:       after,
		TaskBiased:  biased,
		Broadcast:   qBroadcast,
		Next:        append([]float64(nil), next...),
		Messages:    msgs,
		Filter:      filter,
		Coherence:   coherence,
		Coarse:      coarse,
		Expanded:    expanded,
		G:           fe,
		Decision:    decision,
	}
}

// #endregion update-function
