package file

import (
	"github.com/jsphweid/improv/midi"
	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ReadAll decodes every path. Unreadable files are skipped with a warning
// unless strict is set, in which case the first failure is returned.
func ReadAll(paths []string, strict bool) ([]model.Document, error) {
	logger := log.WithFields(log.Fields{
		"function": "file.ReadAll",
	})

	docs := make([]model.Document, 0, len(paths))
	for i, path := range paths {
		logger.Debugf("Reading %v of %v midi files", i+1, len(paths))
		doc, err := midi.ReadMidiFile(path)
		if err != nil {
			if strict {
				return nil, err
			}
			logger.Warnf("Skipping %v because: %v", path, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadDir gathers up to maxNum midi files under dir and decodes them
func LoadDir(dir string, maxNum int, strict bool) ([]model.Document, error) {
	paths, err := util.GatherAllMidiPaths(dir, maxNum)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no .mid or .midi files in %s", dir)
	}
	return ReadAll(paths, strict)
}
