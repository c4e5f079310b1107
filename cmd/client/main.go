package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/lyra/internal/adapter/driven/audio/loopback"
	"github.com/Wyydra/lyra/internal/client"
	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	addr     string
	username string
	password string
)

const chunkSize = 4096

func main() {
	root := &cobra.Command{
		Use:   "lyra",
		Short: "Demo peer for the lyra signaling relay",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:9077", "relay address")
	root.PersistentFlags().StringVar(&username, "user", "", "username")
	root.PersistentFlags().StringVar(&password, "pass", "", "password")

	call := &cobra.Command{
		Use:   "call <callee>",
		Short: "Ring another peer and stream a test tone once connected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, f *client.Facade) error {
				return f.Call(ctx, domain.Identity(args[0]))
			}, false)
		},
	}

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Wait for incoming calls and auto-accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(nil, true)
		},
	}

	root.AddCommand(call, listen)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(intent func(context.Context, *client.Facade) error, autoAccept bool) error {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	zlog.Logger = zerolog.New(w).With().Timestamp().Logger()

	conn, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// best effort: the account may already exist
	client.Register(ctx, conn, username, password)
	self, err := client.Login(ctx, conn, username, password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", self)

	var facade *client.Facade
	facade = client.NewFacade(conn, self, openDemoDevices, client.Options{
		ChunkSize:        chunkSize,
		SilenceThreshold: 0.02,
		Handlers: client.Handlers{
			OnPhase: func(p client.Phase) { fmt.Printf("call state: %s\n", p) },
			OnIncoming: func(caller domain.Identity) {
				fmt.Printf("incoming call from %s\n", caller)
				if autoAccept {
					go func() {
						if err := facade.Accept(ctx); err != nil {
							fmt.Printf("accept failed: %v\n", err)
						}
					}()
				}
			},
			OnMessage: func(from domain.Identity, content string) {
				fmt.Printf("[%s] %s\n", from, content)
			},
		},
	})

	go facade.Run(ctx)

	if intent != nil {
		if err := intent(ctx, facade); err != nil {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	facade.Hangup(ctx)
	return nil
}

// openDemoDevices stands in for real sound hardware: capture yields a
// 440Hz tone, playback is discarded after level accounting.
func openDemoDevices() (port.AudioDevice, port.AudioDevice, error) {
	in := loopback.NewDevice()
	out := loopback.NewDevice()
	go func() {
		chunk := make([]byte, chunkSize)
		var phase float64
		for {
			for i := 0; i+1 < len(chunk); i += 2 {
				s := int16(0.2 * math.MaxInt16 * math.Sin(phase))
				chunk[i] = byte(uint16(s))
				chunk[i+1] = byte(uint16(s) >> 8)
				phase += 2 * math.Pi * 440 / 16000
			}
			if in.QueueCapture(chunk) != nil {
				return
			}
			time.Sleep(128 * time.Millisecond)
		}
	}()
	return in, out, nil
}
