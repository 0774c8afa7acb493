package cmd

import (
	"fmt"
	"sort"

	"github.com/jsphweid/improv/file"
	"github.com/jsphweid/improv/improviser"
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/util"
	"github.com/spf13/cobra"
)

var reportFlags struct {
	maxFiles int
	top      int
}

func init() {
	reportCmd.Flags().IntVar(&reportFlags.maxFiles, "max-files", 0, "use at most this many input files, 0 for all")
	reportCmd.Flags().IntVar(&reportFlags.top, "top", 10, "number of most frequent contexts to list")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <midi dir>",
	Short: "Trains on a directory and reports on the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(args[0])
	},
}

func report(dir string) error {
	im, err := newImproviser()
	if err != nil {
		return err
	}
	docs, err := file.LoadDir(dir, reportFlags.maxFiles, false)
	if err != nil {
		return err
	}
	if err := im.Train(docs); err != nil {
		return err
	}

	stats := im.Stats()
	fmt.Printf("files: %v\n", len(docs))
	fmt.Printf("order: %v\n", stats.Order)
	fmt.Printf("contexts: %v\n", stats.Contexts)
	fmt.Printf("transitions: %v\n", stats.Transitions)
	fmt.Printf("dead ends: %v\n", stats.DeadEnds)
	fmt.Printf("total weight: %v\n", stats.TotalWeight)
	if stats.Contexts > 0 {
		fmt.Printf("avg transitions per context: %.2f\n", float64(stats.Transitions)/float64(stats.Contexts))
	}

	weights := im.Weights()
	fmt.Println("contexts by number of successors:")
	branching := branchingHistogram(im, util.GetKeys(weights))
	for _, n := range util.SortedKeys(branching) {
		fmt.Printf("%6d %v\n", n, branching[n])
	}

	fmt.Println("most frequent contexts:")
	for _, c := range topContexts(weights, reportFlags.top) {
		fmt.Printf("%6d %v\n", weights[c], c)
	}
	return nil
}

// branchingHistogram counts contexts by how many distinct successors they have
func branchingHistogram(im *improviser.Improviser, contexts []markov.Context) map[int]int {
	res := make(map[int]int)
	for _, c := range contexts {
		res[len(im.Transitions(c))]++
	}
	return res
}

// topContexts returns the n heaviest contexts, ties broken by their text
func topContexts(weights map[markov.Context]int, n int) []markov.Context {
	contexts := util.GetKeys(weights)
	sort.Slice(contexts, func(i, j int) bool {
		wi, wj := weights[contexts[i]], weights[contexts[j]]
		if wi != wj {
			return wi > wj
		}
		return contexts[i].String() < contexts[j].String()
	})
	if len(contexts) > n {
		contexts = contexts[:util.Max(n, 0)]
	}
	return contexts
}
