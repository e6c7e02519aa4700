/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"multicanvas/internal/locale"
	"multicanvas/internal/registry"
)

var searchGo int

type searchResult struct {
	Project int    `json:"project"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	LayerID string `json:"layer_id,omitempty"`
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find projects, layers and bookmarks across all projects",
	Long: `Search project, layer and bookmark names of every open project. The match
mode (substring or fuzzy) comes from the search_mode setting.

With --go N the N-th result is activated: its project becomes active and the
bookmark view or layer selection is applied.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len([]rune(args[0])) < registry.MinQueryLen {
			return errors.New("search text must have at least " + strconv.Itoa(registry.MinQueryLen) + " characters")
		}
		run := readWorkspace
		if searchGo > 0 {
			run = withWorkspace
		}
		return run(func(lv *live) error {
			hits := lv.reg.Search(args[0])
			if searchGo > 0 {
				if searchGo > len(hits) {
					return errors.New(loc.T(locale.MsgNoMatches))
				}
				return lv.reg.ActivateHit(hits[searchGo-1])
			}

			results := make([]searchResult, 0, len(hits))
			for _, h := range hits {
				results = append(results, describeHit(h))
			}
			if jsonOutput {
				return outputJSON(results)
			}
			if len(results) == 0 {
				PrintEmptyState(loc.T(locale.MsgNoMatches))
				return nil
			}
			rows := make([][]string, 0, len(results))
			for i, r := range results {
				project := ""
				if s, err := lv.reg.At(r.Project - 1); err == nil {
					project = s.Name
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), r.Kind, r.Name, project})
			}
			PrintTable([]string{"#", "Kind", "Match", loc.T(locale.MsgProject)}, rows)
			return nil
		})
	},
}

func describeHit(h registry.SearchHit) searchResult {
	r := searchResult{Project: h.Project() + 1}
	switch m := h.(type) {
	case registry.ProjectMatch:
		r.Kind, r.Name = "project", m.Name
	case registry.LayerMatch:
		r.Kind, r.Name, r.LayerID = "layer", m.LayerName, m.LayerID
	case registry.BookmarkMatch:
		r.Kind, r.Name = "bookmark", m.BookmarkName
	}
	return r
}

func init() {
	searchCmd.Flags().IntVar(&searchGo, "go", 0, "Activate the N-th result")
}
