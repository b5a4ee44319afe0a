// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Command pcrsim drives a simulated PCR bank from the command line.
//
// Usage:
//
//	pcrsim run -config session.yaml [-restore FILE] [-save FILE]
//	pcrsim replay [-alg sha256] -pcr 0 FILE
//	pcrsim hash [-alg sha256] [-hex] INPUT
//	pcrsim algorithms
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/hashcalc"
	"github.com/google/go-pcrsim/internal/config"
	"github.com/google/go-pcrsim/simulator"
	"github.com/urfave/cli"
)

var errUsage = errors.New("invalid usage")

var runCmd = cli.Command{
	Name:  "run",
	Usage: "Run a YAML session file",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to the session YAML file"},
		cli.StringFlag{Name: "restore", Usage: "load a saved session before applying the config"},
		cli.StringFlag{Name: "save", Usage: "write the resulting session to this file"},
	},
	Action: doRun,
}

var replayCmd = cli.Command{
	Name:      "replay",
	Usage:     "Replay a measurement file into a PCR",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "alg", Usage: "hash algorithm (default from PCRSIM_ALGORITHM or sha256)"},
		cli.IntFlag{Name: "pcr", Usage: "PCR index to replay into"},
	},
	Action: doReplay,
}

var hashCmd = cli.Command{
	Name:      "hash",
	Usage:     "Hash a single input",
	ArgsUsage: "INPUT",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "alg", Usage: "hash algorithm, including sha224 and sha3-224"},
		cli.BoolFlag{Name: "hex", Usage: "treat INPUT as hex-encoded bytes"},
	},
	Action: doHash,
}

var algorithmsCmd = cli.Command{
	Name:   "algorithms",
	Usage:  "List supported hash algorithms",
	Action: doAlgorithms,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "pcrsim"
	app.HelpName = "pcrsim"
	app.Usage = "simulate a TPM PCR bank"
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Commands = []cli.Command{runCmd, replayCmd, hashCmd, algorithmsCmd}
	app.Action = func(c *cli.Context) error {
		if c.NArg() > 0 {
			return fmt.Errorf("unknown command %q", c.Args().First())
		}
		if err := cli.ShowAppHelp(c); err != nil {
			return err
		}
		return errUsage
	}
	return app
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		fmt.Fprintf(stderr, "pcrsim: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// envConfig returns the defaults overlaid with the environment, for commands
// that take no config file.
func envConfig() (SessionConfig, error) {
	cfg := defaultSessionConfig()
	if err := config.Load(&cfg, "", sessionEnv); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

func doRun(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		return fmt.Errorf("%w: -config is required", errUsage)
	}
	stdout, stderr := c.App.Writer, c.App.ErrWriter

	cfg := defaultSessionConfig()
	if err := config.Load(&cfg, path, sessionEnv); err != nil {
		return err
	}
	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	sim, err := simulator.New(cfg.algorithm(), simulator.WithLogger(logger))
	if err != nil {
		return err
	}

	if restore := c.String("restore"); restore != "" {
		b, err := os.ReadFile(restore)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		if err := sim.RestoreSession(b); err != nil {
			return fmt.Errorf("failed to restore %s: %w", restore, err)
		}
	}

	for i, m := range cfg.Measurements {
		if err := sim.AddMeasurement(m.Description, m.Value, m.PCR); err != nil {
			return fmt.Errorf("measurements[%d]: %w", i, err)
		}
	}
	if err := sim.VerifyLog(); err != nil {
		return fmt.Errorf("measurement log does not match bank: %w", err)
	}

	base := filepath.Dir(path)
	for i, r := range cfg.Replays {
		var v string
		if r.File != "" {
			file := r.File
			if !filepath.IsAbs(file) {
				file = filepath.Join(base, file)
			}
			v, _, err = sim.ReplayFile(r.PCR, file)
		} else {
			v, err = sim.Replay(r.PCR, r.Measurements)
		}
		if err != nil {
			return fmt.Errorf("replays[%d]: %w", i, err)
		}
		logger.Info("replayed", "pcr", r.PCR, "value", v)
		if r.Expect != "" {
			if err := sim.Verify(r.PCR, r.Expect); err != nil {
				return fmt.Errorf("replays[%d]: %w", i, err)
			}
		}
	}

	printPCRs(stdout, sim)

	if save := c.String("save"); save != "" {
		b, err := sim.MarshalSession()
		if err != nil {
			return err
		}
		if err := os.WriteFile(save, b, 0o644); err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
		logger.Info("saved session", "path", save)
	}

	var errs error
	for i, e := range cfg.Expect {
		if err := sim.Verify(e.PCR, e.Value); err != nil {
			errs = errors.Join(errs, fmt.Errorf("expect[%d]: %w", i, err))
		}
	}
	return errs
}

func doReplay(c *cli.Context) error {
	cfg, err := envConfig()
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return fmt.Errorf("%w: replay takes exactly one file", errUsage)
	}
	algName := c.String("alg")
	if algName == "" {
		algName = cfg.Algorithm
	}
	alg, ok := digest.ParseAlgorithm(algName)
	if !ok {
		return fmt.Errorf("unknown algorithm %q", algName)
	}
	logger, err := newLogger(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		return err
	}
	sim, err := simulator.New(alg, simulator.WithLogger(logger))
	if err != nil {
		return err
	}
	index := c.Int("pcr")
	v, parsed, err := sim.ReplayFile(index, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "PCR%02d %s: %s\n", index, alg, v)
	fmt.Fprintf(c.App.Writer, "measurements: %d, comments: %d, skipped: %d\n",
		len(parsed.Values), parsed.Comments, parsed.Skipped)
	return nil
}

func doHash(c *cli.Context) error {
	cfg, err := envConfig()
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("%w: hash needs an input", errUsage)
	}
	algName := c.String("alg")
	if algName == "" {
		algName = cfg.Algorithm
	}
	kind := hashcalc.Text
	if c.Bool("hex") {
		kind = hashcalc.Hex
	}
	sum, err := hashcalc.CalculateByName(strings.Join(c.Args(), " "), kind, algName)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, sum)
	return nil
}

func doAlgorithms(c *cli.Context) error {
	for _, alg := range digest.Algorithms() {
		fmt.Fprintf(c.App.Writer, "%-9s %2d bytes  0x%04X\n", alg, alg.Size(), uint16(alg.TPMAlg()))
	}
	return nil
}

func printPCRs(w io.Writer, sim *simulator.Simulator) {
	fmt.Fprintf(w, "%s bank\n", sim.Algorithm())
	for _, v := range sim.AllPCRValues() {
		fmt.Fprintf(w, "PCR%02d: %s\n", v.Index, v.Hex)
	}
}
