package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"homeswitch/internal/usecase"
)

func runGenerate(count int) task {
	return func(ctx context.Context, uc usecase.ProvisioningUsecase) error {
		devices, err := uc.GenerateStock(ctx, count)
		if err != nil {
			return err
		}

		for _, device := range devices {
			fmt.Printf("%s\t%s\t%s\n", device.DeviceID, device.PairingCode, device.Type)
		}
		fmt.Printf("Successfully created %d devices\n", len(devices))

		return nil
	}
}

func runCheckPins(dryRun bool) task {
	return func(ctx context.Context, uc usecase.ProvisioningUsecase) error {
		report, err := uc.CheckPins(ctx, dryRun)
		if err != nil {
			return err
		}

		printPinReport(os.Stdout, report, dryRun)

		return nil
	}
}

func printPinReport(w io.Writer, report *usecase.PinReport, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "DRY RUN MODE - No changes were made")
	}

	fmt.Fprintf(w, "Devices missing hardware_pin: %d\n", len(report.MissingPin))
	for _, device := range report.MissingPin {
		fmt.Fprintf(w, "  - %s (%s)\n", device.Name, device.DeviceID)
	}

	if dryRun {
		fmt.Fprintf(w, "Would fix %d devices\n", report.Fixed)
	} else {
		fmt.Fprintf(w, "Fixed %d devices\n", report.Fixed)
	}

	for _, conflict := range report.Conflicts {
		fmt.Fprintf(w, "Controller %s has duplicate hardware pin %q: %v\n", conflict.ControllerID, conflict.HardwarePin, conflict.DeviceIDs)
	}

	if n := len(report.PairedWithoutController); n > 0 {
		fmt.Fprintf(w, "%d paired devices have no controller and cannot receive commands\n", n)
		for _, device := range report.PairedWithoutController {
			fmt.Fprintf(w, "  - %s (%s)\n", device.Name, device.DeviceID)
		}
	}

	fmt.Fprintf(w, "%d devices are unpaired and ready for pairing\n", report.Unpaired)
	fmt.Fprintf(w, "Devices ready for controller commands: %d\n", report.Ready)
}
