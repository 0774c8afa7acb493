package cmd

import (
	"fmt"

	"github.com/jsphweid/improv/ingest"
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/midi"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/theory"
	"github.com/spf13/cobra"
)

var showDurations bool

func init() {
	inspectCmd.Flags().BoolVar(&showDurations, "durations", false, "also print the allowed durations")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <midi file>",
	Short: "Shows what the improviser learns from one MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(args[0])
	},
}

func inspect(path string) error {
	im, err := newImproviser()
	if err != nil {
		return err
	}
	doc, err := midi.ReadMidiFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("file: %v\n", doc.Name)
	fmt.Printf("resolution: %v\n", doc.Resolution)
	fmt.Printf("key signatures: %v\n", doc.KeySignatures)
	interval := ingest.Transposition(doc)
	key := model.KeySignature{Key: "C", Mode: model.Major}
	if len(doc.KeySignatures) > 0 {
		key = doc.KeySignatures[0]
	}
	tonic, _ := theory.PitchClass(key.Key)
	reference := theory.Transpose(tonic, interval)
	fmt.Printf("transposition: %v (%s %s to %s %s)\n", interval, key.Key, key.Mode, theory.KeyName(reference), key.Mode)
	for i, track := range doc.Tracks {
		fmt.Printf("track %d %q channel %d: %d notes, percussion: %v\n", i, track.Name, track.Channel+1, len(track.Notes), track.IsPercussion)
	}

	sequences, err := im.Parse([]model.Document{doc})
	if err != nil {
		return err
	}
	for _, seq := range sequences {
		fmt.Printf("states: %d\n", len(seq))
		var inKey int
		for _, s := range seq {
			if theory.InKey(int(s.Pitch), reference, key.Mode) {
				inKey++
			}
			fmt.Println(markov.FormatState(s))
		}
		fmt.Printf("states in %s %s: %d of %d\n", theory.KeyName(reference), key.Mode, inKey, len(seq))
	}

	if showDurations {
		fmt.Printf("allowed durations: %v\n", im.Quantizer().Durations())
	}
	return nil
}
