package cmd

import (
	"net/http"

	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/file"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	addr     string
	maxFiles int
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().IntVar(&serveFlags.maxFiles, "max-files", 0, "train on at most this many files from MEDIA_PATH, 0 for all")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves training and generation over HTTP",
	Long: `Serves training and generation over HTTP. When MEDIA_PATH is set the
model is trained from it on startup and again on POST /reload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	logger := log.WithFields(log.Fields{
		"function": "serve",
	})

	im, err := newImproviser()
	if err != nil {
		return err
	}

	mediaDir := constants.GetMediaDir()
	if mediaDir != "" {
		docs, err := file.LoadDir(mediaDir, serveFlags.maxFiles, false)
		if err != nil {
			return err
		}
		if err := im.Train(docs); err != nil {
			return err
		}
	}

	server := NewServer(im, mediaDir, serveFlags.maxFiles)
	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
	}).Handler(server.Router())

	logger.Infof("Listening on %s", serveFlags.addr)
	return errors.Wrap(http.ListenAndServe(serveFlags.addr, handler), "serving")
}
