package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jsphweid/midigen/assembler"
	"github.com/jsphweid/midigen/chunk"
	"github.com/jsphweid/midigen/file"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/pipeline"
	"github.com/jsphweid/midigen/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var topTokens int

func init() {
	reportCmd.Flags().IntVar(&maxFiles, "max", 0, "read at most this many files")
	reportCmd.Flags().IntVar(&topTokens, "top", 10, "most frequent tokens to list")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <midi-dir>",
	Short: "Creates a report",
	Long:  `Prints token statistics for the corpus under midi-dir and, when <out>/chunks exists, for the exported chunks.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := analyzeCorpus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		corpus.print()

		chunksDir := filepath.Join(cfg.OutDir, "chunks")
		if _, err := os.Stat(filepath.Join(chunksDir, chunk.OverviewFilename)); err == nil {
			chunks, err := analyzeChunks(chunksDir)
			if err != nil {
				return err
			}
			chunks.print()
		}
		return nil
	},
}

type corpusReport struct {
	numFiles      int
	numSkipped    int
	tokensPerFile []int
	counts        map[string]int
	numChords     int
}

type chunksReport struct {
	numFiles         int64
	pairsInChunks    []uint32
	headerPercents   []float32
	avgHeaderPercent float32
	totalBytes       int64
	dataBytes        int64
}

func analyzeCorpus(ctx context.Context, dir string) (corpusReport, error) {
	var report corpusReport
	paths, err := file.GatherMidiPaths(dir, maxFiles)
	if err != nil {
		return report, err
	}
	corpus, err := pipeline.BuildCorpus(ctx, logger, paths, cfg.Workers)
	if err != nil {
		return report, err
	}

	report.numFiles = len(paths)
	report.numSkipped = len(corpus.Skipped)
	for _, path := range util.GetKeys(corpus.PerFile) {
		report.tokensPerFile = append(report.tokensPerFile, corpus.PerFile[path])
	}
	report.counts = make(map[string]int)
	for _, t := range corpus.Tokens {
		report.counts[t]++
		if assembler.IsChord(t) {
			report.numChords++
		}
	}
	return report, nil
}

func (r corpusReport) print() {
	numTokens := util.Sum(r.tokensPerFile)
	fmt.Printf("files: %v\n", r.numFiles)
	fmt.Printf("skipped: %v\n", r.numSkipped)
	fmt.Printf("files without notes: %v\n", len(r.tokensPerFile)-len(util.FilterZeros(r.tokensPerFile)))
	fmt.Printf("tokens: %v\n", numTokens)
	fmt.Printf("distinct tokens: %v\n", len(r.counts))
	if numTokens > 0 {
		fmt.Printf("chord share: %v\n", float32(r.numChords)/float32(numTokens))
	}

	keys := util.GetKeys(r.counts)
	sort.SliceStable(keys, func(i, j int) bool {
		return r.counts[keys[i]] > r.counts[keys[j]]
	})
	for _, k := range keys[:util.Min(max(topTokens, 0), len(keys))] {
		fmt.Printf("%8d  %v\n", r.counts[k], k)
	}
}

func analyzeChunks(dir string) (chunksReport, error) {
	var report chunksReport
	overview, err := chunk.LoadOverview(dir)
	if err != nil {
		return report, err
	}

	for _, c := range overview {
		report.numFiles += 1
		path := filepath.Join(dir, c.Filename)
		info, err := os.Stat(path)
		if err != nil {
			return report, errors.Wrap(err, "could not get file stats")
		}
		header, headerBytes, err := readChunkHeader(path)
		if err != nil {
			return report, err
		}
		if header.Count != c.End-c.Start {
			return report, errors.Wrapf(chunk.ErrBadChunk, "%s holds %d pairs, overview says %d", c.Filename, header.Count, c.End-c.Start)
		}

		report.pairsInChunks = append(report.pairsInChunks, header.Count)
		report.headerPercents = append(report.headerPercents, float32(headerBytes)/float32(info.Size()))
		report.totalBytes += info.Size()
		report.dataBytes += info.Size() - int64(headerBytes)
	}
	if report.totalBytes > 0 {
		report.avgHeaderPercent = float32(report.totalBytes-report.dataBytes) / float32(report.totalBytes)
	}
	return report, nil
}

func readChunkHeader(path string) (h model.ChunkHeader, n uint32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return h, 0, errors.Wrap(err, "could not open chunk")
	}
	defer f.Close()
	return chunk.ReadHeader(f)
}

func (r chunksReport) print() {
	fmt.Printf("chunks: %v\n", r.numFiles)
	fmt.Printf("pairs in chunks: %v\n", r.pairsInChunks)
	fmt.Printf("pairs total: %v\n", util.Sum(r.pairsInChunks))
	fmt.Printf("header percents: %v\n", r.headerPercents)
	fmt.Printf("avg header percent: %v\n", r.avgHeaderPercent)
	fmt.Printf("total bytes: %v\n", r.totalBytes)
	fmt.Printf("data bytes: %v\n", r.dataBytes)
}
