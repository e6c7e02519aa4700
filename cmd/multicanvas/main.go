/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"os"

	"multicanvas/internal/cli"
	"multicanvas/internal/crash"
	"multicanvas/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	// a panic inside a command still saves the open projects
	defer crash.Recover(cli.CrashTarget())

	cli.SetVersion(version.String())
	if err := cli.Execute(); err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	return 0
}
