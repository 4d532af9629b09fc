// Package main is the entry point for the wonderswan2midi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/wonderswan2midi/pkg/api"
	"github.com/james-see/wonderswan2midi/pkg/converter"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	ppqn := flag.Uint("ppqn", converter.DefaultPPQN, "Default MIDI ticks per quarter note")
	program := flag.Uint("program", converter.DefaultProgram, "Default GM program for every channel (0-127)")
	flag.Parse()

	opts, err := defaultOptions(*ppqn, *program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Starting wonderswan2midi API server on port %d...\n", *port)
	fmt.Printf("Conversions default to %d PPQN, program %d\n", *ppqn, *program)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// defaultOptions checks the flag values and turns them into conversion options
func defaultOptions(ppqn, program uint) ([]converter.Option, error) {
	if ppqn == 0 || ppqn > 0xFFFF {
		return nil, fmt.Errorf("ppqn must be between 1 and 65535, got %d", ppqn)
	}
	if program > 127 {
		return nil, fmt.Errorf("program must be between 0 and 127, got %d", program)
	}
	return []converter.Option{
		converter.WithPPQN(uint16(ppqn)),
		converter.WithProgram(uint8(program)),
	}, nil
}
