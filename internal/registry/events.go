/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package registry

// EventKind names what happened in an Event.
type EventKind int

const (
	EventSwitched EventKind = iota + 1
	EventCreated
	EventOpened
	EventClosed
	EventDuplicated
	EventReordered
	EventRenamed
	EventSaved
	EventSynced
	EventLoaded
	EventBookmark
)

func (k EventKind) String() string {
	switch k {
	case EventSwitched:
		return "switched"
	case EventCreated:
		return "created"
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventDuplicated:
		return "duplicated"
	case EventReordered:
		return "reordered"
	case EventRenamed:
		return "renamed"
	case EventSaved:
		return "saved"
	case EventSynced:
		return "synced"
	case EventLoaded:
		return "loaded"
	case EventBookmark:
		return "bookmark"
	default:
		return "unknown"
	}
}

// Event describes a completed operation so a front end can refresh itself
// and tell the user. Fields that do not apply are zero.
type Event struct {
	Kind  EventKind
	Index int
	Name  string
	Path  string
	Count int
}

// emit queues e while an operation runs and delivers it immediately otherwise.
func (r *Registry) emit(e Event) {
	r.pending = append(r.pending, e)
	if r.state == idle {
		r.flush()
	}
}

func (r *Registry) flush() {
	evs := r.pending
	r.pending = nil
	if r.opts.Notify == nil {
		return
	}
	for _, e := range evs {
		r.opts.Notify(e)
	}
}
