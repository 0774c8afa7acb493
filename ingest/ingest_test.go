package ingest

import (
	"testing"

	"github.com/jsphweid/improv/model"
	"github.com/jsphweid/improv/quantize"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestor() *Ingestor {
	q := quantize.New(480, []int{16, 24}, []int{7, 11, 13, 15, 17, 19, 21, 22, 23, 24})
	return New(q, 480)
}

func TestIngestRescalesAndSorts(t *testing.T) {
	doc := model.Document{
		Name:       "half-res.mid",
		Resolution: 240,
		Tracks: []model.Track{
			{Notes: []model.TrackNote{
				{OnsetTicks: 120, DurationTicks: 120, Pitch: 64},
				{OnsetTicks: 0, DurationTicks: 120, Pitch: 67},
			}},
			{Notes: []model.TrackNote{
				{OnsetTicks: 0, DurationTicks: 240, Pitch: 60},
			}},
		},
	}
	events, err := newIngestor().Ingest(doc)
	require.NoError(t, err)
	assert.Equal(t, []model.NoteEvent{
		{OnsetTicks: 0, Pitch: 60, DurationTicks: 480},
		{OnsetTicks: 0, Pitch: 67, DurationTicks: 240},
		{OnsetTicks: 240, Pitch: 64, DurationTicks: 240},
	}, events)
}

func TestIngestDropsPercussion(t *testing.T) {
	doc := model.Document{
		Resolution: 480,
		Tracks: []model.Track{
			{IsPercussion: true, Notes: []model.TrackNote{{OnsetTicks: 0, DurationTicks: 10, Pitch: 36}}},
			{Notes: []model.TrackNote{{OnsetTicks: 0, DurationTicks: 480, Pitch: 60}}},
			{},
		},
	}
	events, err := newIngestor().Ingest(doc)
	require.NoError(t, err)
	assert.Equal(t, []model.NoteEvent{{OnsetTicks: 0, Pitch: 60, DurationTicks: 480}}, events)
}

func TestIngestNeverCollapsesDuration(t *testing.T) {
	doc := model.Document{
		Resolution: 480,
		Tracks:     []model.Track{{Notes: []model.TrackNote{{OnsetTicks: 3, DurationTicks: 1, Pitch: 60}}}},
	}
	events, err := newIngestor().Ingest(doc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].OnsetTicks)
	assert.Equal(t, 80, events[0].DurationTicks)
}

func TestIngestTransposesToReferenceKey(t *testing.T) {
	doc := model.Document{
		Resolution:    480,
		KeySignatures: []model.KeySignature{{Key: "D", Mode: model.Major}, {Key: "G", Mode: model.Major}},
		Tracks:        []model.Track{{Notes: []model.TrackNote{{OnsetTicks: 0, DurationTicks: 480, Pitch: 62}}}},
	}
	events, err := newIngestor().Ingest(doc)
	require.NoError(t, err)
	assert.Equal(t, 60, events[0].Pitch)

	doc.KeySignatures = []model.KeySignature{{Key: "E", Mode: model.Minor}}
	events, err = newIngestor().Ingest(doc)
	require.NoError(t, err)
	assert.Equal(t, 67, events[0].Pitch)
}

func TestIngestMalformed(t *testing.T) {
	cases := map[string]model.Document{
		"zero resolution": {Name: "a.mid", Resolution: 0},
		"pitch too high": {Name: "b.mid", Resolution: 480, Tracks: []model.Track{
			{Notes: []model.TrackNote{{Pitch: 200, DurationTicks: 10}}},
		}},
		"negative onset": {Name: "c.mid", Resolution: 480, Tracks: []model.Track{
			{Notes: []model.TrackNote{{OnsetTicks: -5, Pitch: 60}}},
		}},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			events, err := newIngestor().Ingest(doc)
			assert.Nil(t, events)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, doc.Name, decodeErr.File)
		})
	}
}

func TestIngestDropsNotesTransposedOutOfRange(t *testing.T) {
	doc := model.Document{
		Resolution:    480,
		KeySignatures: []model.KeySignature{{Key: "B", Mode: model.Major}},
		Tracks: []model.Track{{Notes: []model.TrackNote{
			{OnsetTicks: 0, DurationTicks: 480, Pitch: 127},
			{OnsetTicks: 0, DurationTicks: 480, Pitch: 60},
		}}},
	}
	events, err := newIngestor().Ingest(doc)
	require.NoError(t, err)
	assert.Equal(t, []model.NoteEvent{{OnsetTicks: 0, Pitch: 61, DurationTicks: 480}}, events)
}
