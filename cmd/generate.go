package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/file"
	"github.com/jsphweid/improv/improviser"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/theory"
	"github.com/jsphweid/improv/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var genFlags struct {
	notes         int
	tempo         float64
	key           string
	mode          string
	reinforcement float64
	enforceKey    bool
	recursive     bool
	out           string
	maxFiles      int
	strict        bool
}

func init() {
	f := generateCmd.Flags()
	f.IntVarP(&genFlags.notes, "notes", "n", constants.DefaultMaxNotes, "maximum number of notes")
	f.Float64VarP(&genFlags.tempo, "tempo", "t", constants.DefaultTempo, "tempo in BPM")
	f.StringVarP(&genFlags.key, "key", "k", "C", "key of the output, one of "+strings.Join(theory.PitchNames(), " "))
	f.StringVarP(&genFlags.mode, "mode", "m", string(model.Major), "major or minor")
	f.Float64VarP(&genFlags.reinforcement, "reinforcement", "r", 0, "choice reinforcement in [0, 1]")
	f.BoolVar(&genFlags.enforceKey, "enforce-key", false, "pull every pitch into the key")
	f.BoolVar(&genFlags.recursive, "recursive", false, "refine through increasing orders up to the configured max order")
	f.StringVarP(&genFlags.out, "out", "o", "", "output file (default: a new file in OUT_PATH)")
	f.IntVar(&genFlags.maxFiles, "max-files", 0, "use at most this many input files, 0 for all")
	f.BoolVar(&genFlags.strict, "strict", false, "fail on unreadable input files instead of skipping them")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate <midi dir>",
	Short: "Trains on a directory of MIDI files and writes a new one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generate(args[0])
	},
}

func generate(dir string) error {
	logger := log.WithFields(log.Fields{
		"function": "generate",
	})

	im, err := newImproviser()
	if err != nil {
		return err
	}
	docs, err := file.LoadDir(dir, genFlags.maxFiles, genFlags.strict)
	if err != nil {
		return err
	}
	if err := im.Train(docs); err != nil {
		return err
	}

	opts := improviser.GenerateOptions{
		MaxNotes:      genFlags.notes,
		TempoBPM:      genFlags.tempo,
		Key:           genFlags.key,
		Mode:          model.Mode(genFlags.mode),
		Reinforcement: genFlags.reinforcement,
		EnforceKey:    genFlags.enforceKey,
	}
	var data []byte
	if genFlags.recursive {
		data, err = im.GenerateRecursively(opts)
	} else {
		data, err = im.Generate(opts)
	}
	if err != nil {
		return err
	}

	out := genFlags.out
	if out == "" {
		if err := util.EnsureDir(constants.GetOutDir()); err != nil {
			return err
		}
		out = filepath.Join(constants.GetOutDir(), makeFileName(opts, im.Order()))
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	logger.Infof("Wrote %s", out)
	return nil
}

func makeFileName(opts improviser.GenerateOptions, order int) string {
	mode := "M"
	if opts.Mode == model.Minor {
		mode = "m"
	}
	return fmt.Sprintf("improv-%dn-%s%s-%gbpm-o%d-%s.mid",
		opts.MaxNotes, opts.Key, mode, opts.TempoBPM, order, uuid.New().String()[:8])
}
