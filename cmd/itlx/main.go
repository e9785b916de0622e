// Command itlx is the operator CLI for the ITLX token: metadata document
// tooling, deployment preflight and execution, and post-deploy
// verification against the live chain.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/brainstems/itlx-nep141-token/internal/deploy"
	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
	"github.com/brainstems/itlx-nep141-token/internal/verify"
)

const fetchTimeout = 15 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "itlx"
	app.Usage = "ITLX token deployment and verification tooling"
	app.Commands = []cli.Command{
		metadataCommand(),
		deployCommand(),
		verifyCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func metadataCommand() cli.Command {
	return cli.Command{
		Name:  "metadata",
		Usage: "metadata document tooling",
		Subcommands: []cli.Command{
			{
				Name:      "show",
				Usage:     "print the built-in ITLX on-chain metadata as JSON",
				Action:    metadataShow,
				ArgsUsage: " ",
			},
			{
				Name:      "hash",
				Usage:     "print the reference hash of a metadata document",
				ArgsUsage: "<document.json>",
				Action:    metadataHash,
			},
			{
				Name:      "validate",
				Usage:     "validate a metadata document against the ITLX constants",
				ArgsUsage: "<document.json>",
				Action:    metadataValidate,
			},
		},
	}
}

func metadataShow(c *cli.Context) error {
	md := metadata.DefaultITLX()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(md)
}

func metadataHash(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("expected exactly one document path", 1)
	}
	raw, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	hash := metadata.ReferenceHash(raw)
	fmt.Printf("base64: %s\n", base64.StdEncoding.EncodeToString(hash))
	fmt.Printf("hex:    %s\n", hex.EncodeToString(hash))
	return nil
}

func metadataValidate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("expected exactly one document path", 1)
	}
	doc, raw, err := metadata.LoadDocument(c.Args().First())
	if err != nil {
		return err
	}
	if err := metadata.ValidateDocument(doc); err != nil {
		return fmt.Errorf("document invalid: %w", err)
	}
	fmt.Printf("ok: %s (%s), %d decimals, supply %s\n", doc.Name, doc.Symbol, doc.Decimals, doc.TotalSupply)
	fmt.Printf("reference_hash: %s\n", metadata.ReferenceHashBase64(raw))
	return nil
}

func deployCommand() cli.Command {
	planFlag := cli.StringFlag{
		Name:  "plan",
		Usage: "deployment plan YAML file",
		Value: "deploy.yaml",
	}
	return cli.Command{
		Name:  "deploy",
		Usage: "token deployment",
		Subcommands: []cli.Command{
			{
				Name:  "preflight",
				Usage: "run pre-deployment checks against the plan",
				Flags: []cli.Flag{
					planFlag,
					cli.BoolFlag{
						Name:  "offline",
						Usage: "skip checks that need RPC or document fetch access",
					},
				},
				Action: deployPreflight,
			},
			{
				Name:  "run",
				Usage: "execute the deployment plan via the near CLI",
				Flags: []cli.Flag{
					planFlag,
					cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print the commands and simulate the init call without executing",
					},
					cli.BoolFlag{Name: "debug"},
				},
				Action: deployRun,
			},
		},
	}
}

func deployPreflight(c *cli.Context) error {
	plan, err := deploy.LoadPlan(c.String("plan"))
	if err != nil {
		return err
	}

	var (
		rpc     deploy.AccountViewer
		fetcher *metadata.Fetcher
	)
	if !c.Bool("offline") {
		rpc = nearrpc.NewClient(plan.ResolveNodeURL())
		fetcher = metadata.NewFetcher(fetchTimeout)
	}

	results, err := deploy.NewPreflight(rpc, fetcher).Run(context.Background(), plan)
	for _, r := range results {
		mark := "PASS"
		if !r.Passed {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-22s %s\n", mark, r.Name, r.Detail)
	}
	return err
}

func deployRun(c *cli.Context) error {
	plan, err := deploy.LoadPlan(c.String("plan"))
	if err != nil {
		return err
	}
	logger := newLogger(c.Bool("debug"))

	executor := deploy.NewExecutor(deploy.ExecRunner{}, nil, logger)

	if c.Bool("dry-run") {
		commands, err := deploy.BuildCommands(plan)
		if err != nil {
			return err
		}
		for _, cmd := range commands {
			fmt.Println(cmd.String())
		}
		rec, err := executor.DryRun(plan)
		if err != nil {
			return err
		}
		printDeploymentResult(rec.Status, rec.Steps)
		return nil
	}

	rec, err := executor.Execute(context.Background(), plan)
	if rec != nil {
		printDeploymentResult(rec.Status, rec.Steps)
	}
	return err
}

func printDeploymentResult(status domain.DeploymentStatus, steps []domain.DeploymentStep) {
	for _, step := range steps {
		fmt.Printf("%-16s %s", step.Name, step.Status)
		if step.Status == "failed" && step.Output != "" {
			fmt.Printf("\n%s", step.Output)
		}
		fmt.Println()
	}
	fmt.Println("deployment:", status)
}

func verifyCommand() cli.Command {
	return cli.Command{
		Name:  "verify",
		Usage: "verify a deployed token against the plan",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "plan",
				Usage: "deployment plan YAML file",
				Value: "deploy.yaml",
			},
			cli.BoolFlag{Name: "debug"},
		},
		Action: verifyRun,
	}
}

func verifyRun(c *cli.Context) error {
	plan, err := deploy.LoadPlan(c.String("plan"))
	if err != nil {
		return err
	}
	logger := newLogger(c.Bool("debug"))

	// Verification issues several views against the same contract; cache
	// them briefly so repeated checks do not hammer the RPC node.
	viewer := nearrpc.NewCachingViewer(nearrpc.NewClient(plan.ResolveNodeURL()), 64, 10*time.Second)
	verifier := verify.NewVerifier(viewer, metadata.NewFetcher(fetchTimeout), logger)

	report, err := verifier.Run(context.Background(), plan)
	if report != nil {
		for _, check := range report.Checks {
			mark := "PASS"
			if !check.Passed {
				mark = "FAIL"
			}
			fmt.Printf("[%s] %-18s want=%s got=%s\n", mark, check.Name, check.Want, check.Got)
		}
	}
	return err
}
