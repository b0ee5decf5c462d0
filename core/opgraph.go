// Copyright 2022 The go-syncdoc Authors
// This file is part of the go-syncdoc library.
//
// The go-syncdoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-syncdoc library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-syncdoc library. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// opGraph is the in-memory change DAG: the applied history in
// topological order, its hash index, the per-actor change positions, the
// current head set, the lazily filled vector clock cache and the buffer
// of changes waiting for absent dependencies.
type opGraph struct {
	actors        *state.ActorTable
	history       []*types.Change
	historyByHash map[common.Hash]int
	states        map[int][]int
	heads         map[common.Hash]struct{}
	clockCache    map[common.Hash]types.Clock
	queue         []*types.Change
}

func newOpGraph(actors *state.ActorTable) *opGraph {
	return &opGraph{
		actors:        actors,
		historyByHash: make(map[common.Hash]int),
		states:        make(map[int][]int),
		heads:         make(map[common.Hash]struct{}),
		clockCache:    make(map[common.Hash]types.Clock),
	}
}

func (g *opGraph) contains(h common.Hash) bool {
	_, ok := g.historyByHash[h]
	return ok
}

func (g *opGraph) changeByHash(h common.Hash) (*types.Change, bool) {
	pos, ok := g.historyByHash[h]
	if !ok {
		return nil, false
	}
	return g.history[pos], true
}

// depsSatisfied reports whether every dependency of c is applied.
func (g *opGraph) depsSatisfied(c *types.Change) bool {
	for _, dep := range c.Deps {
		if !g.contains(dep) {
			return false
		}
	}
	return true
}

// addApplied indexes an applied change, assigning it the next position.
// The caller has verified dependencies and seq contiguity.
func (g *opGraph) addApplied(c *types.Change, actorIdx int) int {
	pos := len(g.history)
	g.history = append(g.history, c)
	g.historyByHash[c.Hash()] = pos
	g.states[actorIdx] = append(g.states[actorIdx], pos)
	for _, dep := range c.Deps {
		delete(g.heads, dep)
	}
	g.heads[c.Hash()] = struct{}{}
	return pos
}

// headHashes returns the current heads in ascending hash order.
func (g *opGraph) headHashes() []common.Hash {
	out := make([]common.Hash, 0, len(g.heads))
	for h := range g.heads {
		out = append(out, h)
	}
	common.SortHashes(out)
	return out
}

// enqueue buffers a change whose dependencies are not yet applied.
func (g *opGraph) enqueue(c *types.Change) {
	g.queue = append(g.queue, c)
}

// popSatisfied removes and returns a queued change whose dependencies
// have all arrived, or nil.
func (g *opGraph) popSatisfied() *types.Change {
	for i, c := range g.queue {
		if g.depsSatisfied(c) {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return c
		}
	}
	return nil
}

// queuedHashes returns the hashes of the buffered changes.
func (g *opGraph) queuedHashes() map[common.Hash]bool {
	out := make(map[common.Hash]bool, len(g.queue))
	for _, c := range g.queue {
		out[c.Hash()] = true
	}
	return out
}

// seqForActor returns the number of applied changes by the actor, which
// is also the actor's largest applied seq.
func (g *opGraph) seqForActor(actorIdx int) uint64 {
	return uint64(len(g.states[actorIdx]))
}

// clockAt unions the clocks of the given heads. Heads that are not in
// the graph contribute nothing.
func (g *opGraph) clockAt(heads []common.Hash) types.Clock {
	clock := make(types.Clock)
	for _, h := range heads {
		clock.Union(g.clockFor(h))
	}
	return clock
}

// clockFor computes the vector clock of a single change by breadth-first
// traversal of its ancestry, short-circuiting into the clock cache and
// stopping once every known actor has an entry.
func (g *opGraph) clockFor(hash common.Hash) types.Clock {
	if cached, ok := g.clockCache[hash]; ok {
		return cached
	}
	var (
		queue = []common.Hash{hash}
		seen  = make(map[common.Hash]bool)
		clock = make(types.Clock)
	)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if cached, ok := g.clockCache[h]; ok {
			clock.Union(cached)
			continue
		}
		if seen[h] {
			continue
		}
		if c, ok := g.changeByHash(h); ok {
			queue = append(queue, c.Deps...)
			actorIdx, _ := g.actors.Lookup(c.Actor())
			clock.Include(actorIdx, types.ClockData{Seq: c.Seq, MaxOp: c.MaxOp()})
		}
		if len(clock) == len(g.states) {
			// Entries for every actor; deeper ancestors cannot raise
			// any of them.
			break
		}
		seen[h] = true
	}
	g.clockCache[hash] = clock
	return clock
}

// getChanges lists the changes that are not in the causal past of
// haveDeps, in history order.
func (g *opGraph) getChanges(haveDeps []common.Hash) []*types.Change {
	if fast, ok := g.getChangesFast(haveDeps); ok {
		return fast
	}
	return g.getChangesByClock(haveDeps)
}

// getChangesFast scans the topological history from the lowest given
// dependency, tracking which changes are reachable from haveDeps alone.
// It bails out when a change mixes seen and unseen dependencies or when
// a head remains unseen.
func (g *opGraph) getChangesFast(haveDeps []common.Hash) ([]*types.Change, bool) {
	if len(haveDeps) == 0 {
		out := make([]*types.Change, len(g.history))
		copy(out, g.history)
		return out, true
	}
	lowest := -1
	for _, h := range haveDeps {
		pos, ok := g.historyByHash[h]
		if !ok {
			continue
		}
		if lowest == -1 || pos < lowest {
			lowest = pos
		}
	}
	if lowest == -1 {
		return nil, false
	}
	seen := make(map[common.Hash]bool, len(haveDeps))
	for _, h := range haveDeps {
		seen[h] = true
	}
	var missing []*types.Change
	for _, c := range g.history[lowest+1:] {
		depsSeen := 0
		for _, dep := range c.Deps {
			if seen[dep] {
				depsSeen++
			}
		}
		if depsSeen == 0 {
			continue
		}
		if depsSeen != len(c.Deps) {
			// A change mixes seen and unseen dependencies; the linear
			// scan cannot decide reachability.
			return nil, false
		}
		missing = append(missing, c)
		seen[c.Hash()] = true
	}
	for h := range g.heads {
		if !seen[h] {
			return nil, false
		}
	}
	return missing, true
}

// getChangesByClock is the fallback: every change whose seq exceeds the
// union clock of haveDeps, in history order.
func (g *opGraph) getChangesByClock(haveDeps []common.Hash) []*types.Change {
	clock := g.clockAt(haveDeps)
	var out []*types.Change
	for _, c := range g.history {
		actorIdx, _ := g.actors.Lookup(c.Actor())
		if !clock.CoversSeq(actorIdx, c.Seq) {
			out = append(out, c)
		}
	}
	return out
}

// missingDeps collects the hashes referenced by the queued changes or by
// heads that are neither applied nor introduced by the queue itself.
func (g *opGraph) missingDeps(heads []common.Hash) []common.Hash {
	queued := g.queuedHashes()
	missing := make(map[common.Hash]struct{})
	for _, c := range g.queue {
		for _, dep := range c.Deps {
			if !g.contains(dep) && !queued[dep] {
				missing[dep] = struct{}{}
			}
		}
	}
	for _, h := range heads {
		if !g.contains(h) && !queued[h] {
			missing[h] = struct{}{}
		}
	}
	out := make([]common.Hash, 0, len(missing))
	for h := range missing {
		out = append(out, h)
	}
	common.SortHashes(out)
	return out
}

// filterChanges removes from candidates every hash in the causal past of
// heads, using the clock at heads for a per-actor seq comparison.
func (g *opGraph) filterChanges(heads []common.Hash, candidates map[common.Hash]struct{}) {
	maxHead := 0
	for _, h := range heads {
		if pos, ok := g.historyByHash[h]; ok && pos > maxHead {
			maxHead = pos
		}
	}
	mayFind := make([]common.Hash, 0, len(candidates))
	for h := range candidates {
		if pos, ok := g.historyByHash[h]; ok && pos <= maxHead {
			mayFind = append(mayFind, h)
		}
	}
	if len(mayFind) == 0 {
		return
	}
	clock := g.clockAt(heads)
	for _, h := range mayFind {
		c, _ := g.changeByHash(h)
		actorIdx, _ := g.actors.Lookup(c.Actor())
		if clock.CoversSeq(actorIdx, c.Seq) {
			delete(candidates, h)
		}
	}
}
