package cli

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/spinner/internal/spin"
)

var (
	splitCap  int
	splitSeed int64
)

var splitCmd = &cobra.Command{
	Use:   "split [hp]",
	Short: "Preview how an HP budget is split into spins",
	Args:  cobra.ExactArgs(1),
	Run:   runSplit,
}

func init() {
	splitCmd.Flags().IntVar(&splitCap, "cap", spin.DefaultMaxPerSpin, "maximum HP per spin")
	splitCmd.Flags().Int64Var(&splitSeed, "seed", 0, "random seed (0 uses the clock)")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) {
	hp, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid hp: %v\n", err)
		os.Exit(1)
	}

	seed := splitSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p, err := spin.NewPartitioner(splitCap, rand.New(rand.NewSource(seed)))
	if err != nil {
		fmt.Printf("Invalid cap: %v\n", err)
		os.Exit(1)
	}

	sizes, err := p.Split(hp)
	if err != nil {
		fmt.Printf("Failed to split: %v\n", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "HP %d -> %d spins (cap %d)\n", hp, len(sizes), splitCap)
	for i, s := range sizes {
		_, _ = fmt.Fprintf(out, "%3d. %d\n", i+1, s)
	}
}
