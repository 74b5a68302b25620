// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"flag"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newFlagContext(t *testing.T, name, value string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(name, "", "")
	require.NoError(t, set.Set(name, value))
	return cli.NewContext(nil, set, nil)
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
			assert.NoError(t, setupLogger(newFlagContext(t, "log-level", level)), level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(newFlagContext(t, "log-level", "verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})

	t.Run("debug enables debug logging", func(t *testing.T) {
		require.NoError(t, setupLogger(newFlagContext(t, "log-level", "debug")))
		assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
	})
}

func TestIngestCommandRequiresArgument(t *testing.T) {
	app := &cli.App{
		Name: "allpassagent",
		Commands: []*cli.Command{
			{Name: "ingest", Action: ingestCommand},
		},
	}
	err := app.Run([]string{"allpassagent", "ingest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file argument")
}

func TestAskCommandRequiresArgument(t *testing.T) {
	app := &cli.App{
		Name: "allpassagent",
		Commands: []*cli.Command{
			{Name: "ask", Action: askCommand},
		},
	}
	err := app.Run([]string{"allpassagent", "ask"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question")
}

func TestIngestCommandRejectsUnknownExtension(t *testing.T) {
	app := &cli.App{
		Name: "allpassagent",
		Commands: []*cli.Command{
			{Name: "ingest", Action: ingestCommand},
		},
	}
	err := app.Run([]string{"allpassagent", "ingest", "song.mp3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extension")
}
