// cmd/spidemo/main.go
//
// Host-side demonstration: a SPI master instance talking to a simulated
// peripheral, with board LEDs mirroring the transfer lifecycle. Run it on
// a workstation; the nrf51 build tag swaps in real hardware ports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"spimaster-go/bsp"
	"spimaster-go/errcode"
	"spimaster-go/hwio"
	"spimaster-go/internal/platform"
	"spimaster-go/spim"
)

const (
	demoInstance = spim.SPIM0
	demoRounds   = 5
	roundPause   = 500 * time.Millisecond
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Board: two LEDs, one button that aborts the demo early.
	led0 := hwio.NewFakePin(17)
	led1 := hwio.NewFakePin(18)
	btn := hwio.NewFakePin(3)
	board := bsp.New(bsp.Config{
		LEDs:    []hwio.GPIOPin{led0, led1},
		Buttons: []hwio.IRQPin{btn},
	})

	demoCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := board.Start(demoCtx, func(ev bsp.Event) {
		if ev == bsp.EventKey0 {
			fmt.Println("button: stopping demo")
			cancel()
		}
	}); err != nil {
		fmt.Println("bsp start:", err)
		os.Exit(1)
	}

	// Simulated peripheral: adds one to every octet it receives.
	provider := platform.NewHostProvider()
	provider.SetSlave(demoInstance, func(out byte) byte { return out + 1 })

	drv := spim.New(provider)
	cfg := spim.DefaultConfig()
	cfg.Frequency = spim.Freq1M
	cfg.SCK, cfg.MISO, cfg.MOSI, cfg.SS = 2, 3, 4, 5

	if err := drv.Open(demoInstance, &cfg); err != nil {
		fmt.Println("open:", err)
		os.Exit(1)
	}
	defer drv.Close(demoInstance)

	done := make(chan spim.Event, 4)
	drv.RegisterHandler(demoInstance, func(ev spim.Event) {
		done <- ev
	})

	_ = board.IndicationSet(bsp.IndicateConnected)

	tx := []byte{0x10, 0x20, 0x30, 0x40}
	rx := make([]byte, len(tx))

	for round := 0; round < demoRounds; round++ {
		if demoCtx.Err() != nil {
			break
		}

		if err := drv.SendReceive(demoInstance, tx, rx); err != nil {
			fmt.Println("send failed:", errcode.Of(err))
			_ = board.IndicationSet(bsp.IndicateSendError)
			break
		}
		waitFor(demoCtx, done, spim.TransferStarted)
		ev, ok := waitFor(demoCtx, done, spim.TransferCompleted)
		if !ok {
			break
		}

		fmt.Printf("round %d: tx % x -> rx % x (%d octets)\n", round, tx, rx, ev.Count)
		_ = board.IndicationSet(bsp.IndicateSentOK)

		select {
		case <-demoCtx.Done():
		case <-time.After(roundPause):
		}
	}

	_ = board.IndicationSet(bsp.IndicateIdle)
	fmt.Println("demo finished; state:", drv.State(demoInstance))
}

func waitFor(ctx context.Context, ch <-chan spim.Event, want spim.EventType) (spim.Event, bool) {
	for {
		select {
		case <-ctx.Done():
			return spim.Event{}, false
		case ev := <-ch:
			if ev.Type == want {
				return ev, true
			}
		}
	}
}
