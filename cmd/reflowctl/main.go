// Command reflowctl sends a single command to a reflow oven controller.
//
//	reflowctl --device 127.0.0.1:9000 reserve
//	reflowctl --device 127.0.0.1:9000 heater on
//	reflowctl --device 127.0.0.1:9000 status
package main

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"reflow_emulator/internal/protocol"
)

func main() {
	device := pflag.String("device", "127.0.0.1:9000", "device address")
	local := pflag.String("local", "127.0.0.1:0", "local address to send from; fixing the port keeps the reservation identity stable")
	timeout := pflag.Duration("timeout", time.Second, "how long to wait for a status reply")
	pflag.Parse()

	if err := run(*device, *local, *timeout, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "reflowctl:", err)
		os.Exit(1)
	}
}

func run(deviceAddr, localAddr string, timeout time.Duration, args []string) error {
	op, arg, err := parseCommand(args)
	if err != nil {
		return err
	}
	to, err := netip.ParseAddrPort(deviceAddr)
	if err != nil {
		return fmt.Errorf("device address: %w", err)
	}
	from, err := netip.ParseAddrPort(localAddr)
	if err != nil {
		return fmt.Errorf("local address: %w", err)
	}

	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(from))
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.WriteToUDPAddrPort(protocol.EncodeCommand(op, arg), to); err != nil {
		return err
	}
	if op != protocol.OpStatusRequest {
		return nil
	}

	buf := make([]byte, 16)
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	n, _, err := conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return fmt.Errorf("waiting for status: %w", err)
	}
	msg, err := protocol.DecodeStatus(buf[:n])
	if err != nil {
		return err
	}
	fmt.Printf("temperature=%d flag=%d\n", msg.Temperature, msg.Flag)
	return nil
}

func parseCommand(args []string) (protocol.Opcode, byte, error) {
	if len(args) == 0 {
		return 0, 0, fmt.Errorf("missing command: heater on|off, reserve, release, status, stop")
	}
	switch strings.ToLower(args[0]) {
	case "heater":
		if len(args) < 2 {
			return 0, 0, fmt.Errorf("heater needs on or off")
		}
		switch strings.ToLower(args[1]) {
		case "on", "1":
			return protocol.OpHeaterControl, 1, nil
		case "off", "0":
			return protocol.OpHeaterControl, 0, nil
		}
		return 0, 0, fmt.Errorf("heater needs on or off, got %q", args[1])
	case "reserve":
		return protocol.OpReserve, 0, nil
	case "release":
		return protocol.OpRelease, 0, nil
	case "status":
		return protocol.OpStatusRequest, 0, nil
	case "stop":
		return protocol.OpStop, 0, nil
	}
	return 0, 0, fmt.Errorf("unknown command %q", args[0])
}
