/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the durable file primitives used by workspace
// persistence (transactional writes with timestamped backups) and the
// per-session SQLite catalog kept next to the scratch files. The catalog holds
// layer listings for search and rendered thumbnails. It is derived from the
// scratch content and can be thrown away at any time.
package storage
