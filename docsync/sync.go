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

package docsync

import (
	"sort"

	mapset "github.com/deckarep/golang-set"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// GenerateSyncMessage computes the next message to send to the peer
// described by s, updating s. A nil message means there is nothing new
// to say.
func GenerateSyncMessage(doc *core.Document, s *SyncState) *Message {
	ourHeads := doc.GetHeads()
	ourNeed := doc.GetMissingDeps(s.TheirHeads)

	theirHeadsSet := make(map[common.Hash]bool, len(s.TheirHeads))
	for _, h := range s.TheirHeads {
		theirHeadsSet[h] = true
	}
	needCovered := true
	for _, h := range ourNeed {
		if !theirHeadsSet[h] {
			needCovered = false
			break
		}
	}
	var ourHave []Have
	if needCovered {
		ourHave = []Have{makeBloomHave(doc, s.SharedHeads)}
	}

	if s.HaveTheirHave && len(s.TheirHave) > 0 {
		// If the peer's frontier claims changes we do not hold, the
		// session state is out of step; answer with a reset.
		first := s.TheirHave[0]
		for _, h := range first.LastSync {
			if doc.GetChangeByHash(h) == nil {
				return &Message{
					Heads: ourHeads,
					Have:  []Have{{Bloom: &BloomFilter{}}},
				}
			}
		}
	}

	var changesToSend []*types.Change
	if s.HaveTheirHave && s.HaveTheirNeed {
		changesToSend = changesToSendFor(doc, s.TheirHave, s.TheirNeed)
	}

	headsUnchanged := common.HashesEqual(s.LastSentHeads, ourHeads)
	headsEqual := s.HaveTheirHeads && common.HashesEqual(s.TheirHeads, ourHeads)
	if headsUnchanged && headsEqual && len(changesToSend) == 0 && len(ourNeed) == 0 {
		return nil
	}

	deduped := changesToSend[:0]
	for _, c := range changesToSend {
		if !s.SentHashes.Contains(c.Hash()) {
			deduped = append(deduped, c)
		}
	}
	changesToSend = deduped

	s.LastSentHeads = ourHeads
	for _, c := range changesToSend {
		s.SentHashes.Add(c.Hash())
	}
	return &Message{
		Heads:   ourHeads,
		Need:    ourNeed,
		Have:    ourHave,
		Changes: changesToSend,
	}
}

// ReceiveSyncMessage folds a peer's message into the document and the
// peer state, returning the number of changes applied.
func ReceiveSyncMessage(doc *core.Document, s *SyncState, m *Message) (int, error) {
	beforeHeads := doc.GetHeads()
	applied := 0

	if len(m.Changes) > 0 {
		before := doc.NumChanges()
		if err := doc.ApplyChanges(m.Changes); err != nil {
			return 0, err
		}
		applied = doc.NumChanges() - before
		s.SharedHeads = advanceHeads(beforeHeads, doc.GetHeads(), s.SharedHeads)
	}

	// Drop sent-hash entries the peer has provably incorporated.
	trimSentHashes(doc, s, m.Heads)

	if len(m.Changes) == 0 && common.HashesEqual(m.Heads, beforeHeads) {
		s.LastSentHeads = m.Heads
	}

	known := make([]common.Hash, 0, len(m.Heads))
	for _, h := range m.Heads {
		if doc.GetChangeByHash(h) != nil {
			known = append(known, h)
		}
	}
	if len(known) == len(m.Heads) {
		s.SharedHeads = m.Heads
		if len(m.Heads) == 0 {
			// The peer lost its data; resend everything next round.
			s.LastSentHeads = nil
			s.SentHashes = mapset.NewSet()
		}
	} else {
		s.SharedHeads = mergeHeads(s.SharedHeads, known)
	}

	s.TheirHave, s.HaveTheirHave = m.Have, true
	s.TheirHeads, s.HaveTheirHeads = m.Heads, true
	s.TheirNeed, s.HaveTheirNeed = m.Need, true
	return applied, nil
}

// makeBloomHave builds the frontier advertisement: the shared heads plus
// a Bloom filter over every change beyond them.
func makeBloomHave(doc *core.Document, lastSync []common.Hash) Have {
	changes := doc.GetChanges(lastSync)
	hashes := make([]common.Hash, len(changes))
	for i, c := range changes {
		hashes[i] = c.Hash()
	}
	return Have{LastSync: lastSync, Bloom: NewBloomFilter(hashes)}
}

// changesToSendFor selects the changes the peer probably lacks: those
// beyond its advertised frontiers that miss every Bloom filter, closed
// over their dependents, plus everything it asked for by hash.
func changesToSendFor(doc *core.Document, have []Have, need []common.Hash) []*types.Change {
	if len(have) == 0 {
		out := make([]*types.Change, 0, len(need))
		for _, h := range need {
			if c := doc.GetChangeByHash(h); c != nil {
				out = append(out, c)
			}
		}
		return out
	}
	lastSyncSet := make(map[common.Hash]bool)
	blooms := make([]*BloomFilter, 0, len(have))
	for _, h := range have {
		for _, hash := range h.LastSync {
			lastSyncSet[hash] = true
		}
		blooms = append(blooms, h.Bloom)
	}
	lastSync := make([]common.Hash, 0, len(lastSyncSet))
	for h := range lastSyncSet {
		lastSync = append(lastSync, h)
	}
	common.SortHashes(lastSync)

	changes := doc.GetChanges(lastSync)
	changeHashes := make(map[common.Hash]bool, len(changes))
	dependents := make(map[common.Hash][]common.Hash)
	toSend := make(map[common.Hash]bool)
	for _, c := range changes {
		hash := c.Hash()
		changeHashes[hash] = true
		for _, dep := range c.Deps {
			dependents[dep] = append(dependents[dep], hash)
		}
		missed := true
		for _, b := range blooms {
			if b.ContainsHash(hash) {
				missed = false
				break
			}
		}
		if missed {
			toSend[hash] = true
		}
	}
	// Anything depending on a change we send must be sent too, or the
	// peer would buffer it forever.
	stack := make([]common.Hash, 0, len(toSend))
	for h := range toSend {
		stack = append(stack, h)
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range dependents[h] {
			if !toSend[dep] {
				toSend[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	var out []*types.Change
	for _, h := range need {
		toSend[h] = true
		if !changeHashes[h] {
			if c := doc.GetChangeByHash(h); c != nil {
				out = append(out, c)
			}
		}
	}
	for _, c := range changes {
		if toSend[c.Hash()] {
			out = append(out, c)
		}
	}
	return out
}

// advanceHeads keeps every old shared head still present in the new
// heads and adds the heads that are new to this document.
func advanceHeads(oldHeads, newHeads, oldShared []common.Hash) []common.Hash {
	oldSet := make(map[common.Hash]bool, len(oldHeads))
	for _, h := range oldHeads {
		oldSet[h] = true
	}
	newSet := make(map[common.Hash]bool, len(newHeads))
	for _, h := range newHeads {
		newSet[h] = true
	}
	advanced := make(map[common.Hash]bool)
	for _, h := range newHeads {
		if !oldSet[h] {
			advanced[h] = true
		}
	}
	for _, h := range oldShared {
		if newSet[h] {
			advanced[h] = true
		}
	}
	out := make([]common.Hash, 0, len(advanced))
	for h := range advanced {
		out = append(out, h)
	}
	common.SortHashes(out)
	return out
}

func mergeHeads(shared, known []common.Hash) []common.Hash {
	set := make(map[common.Hash]bool, len(shared)+len(known))
	for _, h := range shared {
		set[h] = true
	}
	for _, h := range known {
		set[h] = true
	}
	out := make([]common.Hash, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	common.SortHashes(out)
	return out
}

func trimSentHashes(doc *core.Document, s *SyncState, theirHeads []common.Hash) {
	if s.SentHashes.Cardinality() == 0 {
		return
	}
	candidates := make(map[common.Hash]struct{}, s.SentHashes.Cardinality())
	for _, v := range s.SentHashes.ToSlice() {
		candidates[v.(common.Hash)] = struct{}{}
	}
	doc.FilterChanges(theirHeads, candidates)
	kept := make([]common.Hash, 0, len(candidates))
	for h := range candidates {
		kept = append(kept, h)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Cmp(kept[j]) < 0 })
	s.SentHashes = mapset.NewSet()
	for _, h := range kept {
		s.SentHashes.Add(h)
	}
}
