// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

// pn532scan polls a PN532 on an SPI bus and prints the UID of every
// tag that enters the field.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phsym/console-slog"
	"github.com/spf13/pflag"

	"github.com/ZaparooProject/go-pn532spi"
	"github.com/ZaparooProject/go-pn532spi/spibus"
)

var (
	flagPort      string
	flagIRQPin    string
	flagCSPin     string
	flagTimeout   time.Duration
	flagInterval  time.Duration
	flagOnce      bool
	flagListPorts bool
	flagDebug     bool
)

func init() {
	pflag.StringVar(&flagPort, "port", "", "SPI port name (first available if empty)")
	pflag.StringVar(&flagIRQPin, "irq", "", "GPIO pin wired to the PN532 IRQ line")
	pflag.StringVar(&flagCSPin, "cs", "", "GPIO pin used for chip select instead of hardware CS")
	pflag.DurationVar(&flagTimeout, "timeout", 2*time.Second, "Per-command timeout")
	pflag.DurationVar(&flagInterval, "interval", 250*time.Millisecond, "Delay between scan attempts")
	pflag.BoolVar(&flagOnce, "once", false, "Exit after the first tag is read")
	pflag.BoolVar(&flagListPorts, "list", false, "List available SPI ports and exit")
	pflag.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func main() {
	pflag.Parse()

	if flagListPorts {
		for _, name := range spibus.Ports() {
			fmt.Println(name)
		}
		return
	}

	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	log := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: level}))

	if err := run(log); err != nil {
		log.Error("scan failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []spibus.Option
	if flagIRQPin != "" {
		opts = append(opts, spibus.WithIRQPin(flagIRQPin))
	}
	if flagCSPin != "" {
		opts = append(opts, spibus.WithCSPin(flagCSPin))
	}

	bus, err := spibus.Open(flagPort, opts...)
	if err != nil {
		return fmt.Errorf("failed to open SPI bus: %w", err)
	}
	defer func() { _ = bus.Close() }()

	dev, err := pn532spi.New(bus,
		pn532spi.WithLogger(log),
		pn532spi.WithTimeout(flagTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	// Power-up over SPI is flaky on some boards; retry the whole init
	// sequence rather than individual exchanges.
	err = pn532spi.RetryWithConfig(ctx, pn532spi.DefaultRetryConfig(), func() error {
		return dev.Init(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize PN532: %w", err)
	}

	fw, err := dev.GetFirmwareVersionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read firmware version: %w", err)
	}
	log.Info("PN532 ready", "ic", fmt.Sprintf("0x%02X", fw.IC), "firmware", fw.String())

	return scanLoop(ctx, log, dev)
}

func scanLoop(ctx context.Context, log *slog.Logger, dev *pn532spi.Device) error {
	log.Info("waiting for tags, press Ctrl+C to exit")

	var lastUID string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		target, err := dev.ReadPassiveTargetContext(ctx, pn532spi.Baud106kbitTypeA)
		switch {
		case errors.Is(err, pn532spi.ErrNoTargetDetected):
			// Field is empty, forget the last tag so a re-present logs again.
			lastUID = ""
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			if pn532spi.IsFatal(err) {
				return fmt.Errorf("bus failure during scan: %w", err)
			}
			log.Debug("scan attempt failed", "error", err)
		default:
			uid := target.UIDString()
			if uid != lastUID {
				log.Info("tag detected",
					"uid", uid,
					"sens_res", fmt.Sprintf("%02X%02X", target.SensRes[0], target.SensRes[1]),
					"sel_res", fmt.Sprintf("0x%02X", target.SelRes),
				)
				lastUID = uid
			}
			if flagOnce {
				fmt.Println(uid)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(flagInterval):
		}
	}
}
