package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"homeswitch/config"
	"homeswitch/internal/domain/service"
	logs "homeswitch/internal/infra/log"
	"homeswitch/internal/infra/persistence/postgres"
	"homeswitch/internal/usecase"
	"homeswitch/internal/usecase/impl"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Supported subcommands:
// - generate:   Create unpaired stock devices with pairing codes
// - check-pins: Audit controller channel assignments

type provisionFlags struct {
	Generate  generateFlags
	CheckPins checkPinsFlags
}

type generateFlags struct {
	cmd   *flag.FlagSet
	count *int
}

type checkPinsFlags struct {
	cmd    *flag.FlagSet
	dryRun *bool
}

// task runs one subcommand against the provisioning usecase.
type task func(ctx context.Context, uc usecase.ProvisioningUsecase) error

func main() {
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	checkPinsCmd := flag.NewFlagSet("check-pins", flag.ExitOnError)

	flags := provisionFlags{
		Generate: generateFlags{
			cmd:   generateCmd,
			count: generateCmd.Int("count", 10, "Number of devices to create"),
		},
		CheckPins: checkPinsFlags{
			cmd:    checkPinsCmd,
			dryRun: checkPinsCmd.Bool("dry-run", false, "Report fixes without writing them"),
		},
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	run, err := selectTask(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var runErr error
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			postgres.NewTransactionManager,
			postgres.NewControllerRepository,
			postgres.NewDeviceRepository,
			service.NewSystemClock,
			impl.NewProvisioningService,
		),
		fx.Invoke(func(lc fx.Lifecycle, uc usecase.ProvisioningUsecase) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					runErr = run(context.WithoutCancel(ctx), uc)

					return nil
				},
			})
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	_ = app.Stop(stopCtx)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func selectTask(flags *provisionFlags) (task, error) {
	switch os.Args[1] {
	case "generate":
		if err := flags.Generate.cmd.Parse(os.Args[2:]); err != nil {
			return nil, errors.Wrap(err, "failed to parse generate flags")
		}

		return runGenerate(*flags.Generate.count), nil
	case "check-pins":
		if err := flags.CheckPins.cmd.Parse(os.Args[2:]); err != nil {
			return nil, errors.Wrap(err, "failed to parse check-pins flags")
		}

		return runCheckPins(*flags.CheckPins.dryRun), nil
	default:
		printUsage()

		return nil, errors.New("unknown subcommand")
	}
}

func printUsage() {
	fmt.Println("Usage: provision <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  generate    Create unpaired stock devices")
	fmt.Println("  check-pins  Audit controller channel assignments")
	fmt.Println("")
	fmt.Println("Use 'provision <command> -h' for more information about a command.")
}
