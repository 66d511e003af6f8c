/*
 * Copyright 2016 iHeartRadio.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"os"

	"github.com/iheartradio/Henson-Database/cli"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "hensondb",
		Short:         "Database tooling for Henson applications",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(cli.NewDBCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
