package serialhost_test

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/thabofletcher/serialhost"
)

func Example() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	host, err := serialhost.New(serialhost.Config{
		PortName:    "/dev/ttyUSB0",
		BaudRate:    serialhost.Baud9600,
		DataBits:    serialhost.DataBits8,
		Parity:      serialhost.ParityNone,
		StopBits:    serialhost.StopBits1,
		IdleTimeout: 5 * time.Second,
		OnData: func(text string) {
			fmt.Print(text)
		},
		OnCondition: func(c serialhost.Condition) {
			// The host reopens the device on its own after a restart;
			// this is only a notification.
			if c.Kind() == serialhost.KindRestart {
				fmt.Println("device restarted")
			}
		},
		Logger: &logger,
	})
	if err != nil {
		fmt.Println("start error:", err)
		return
	}
	defer host.Close()

	host.WriteLine("ID")
}
