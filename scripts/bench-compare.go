//go:build ignore

// Compares two `go test -bench` output files and fails when the new
// run is slower than the baseline beyond a threshold.
//
//	go test -bench=. -run=^$ ./internal/index > new.txt
//	go run scripts/bench-compare.go new.txt baseline.txt
//
// Exits 1 on regression, so CI can gate merges on it.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Deltas inside [-improveCutoff, regressCutoff] count as noise.
const (
	defaultRegressCutoff = 0.20
	improveCutoff        = 0.10
)

type row struct {
	Name     string  `json:"name"`
	Current  float64 `json:"current_ns_per_op"`
	Baseline float64 `json:"baseline_ns_per_op"`
	DeltaPct float64 `json:"delta_percent"`
	Status   string  `json:"status"`
}

type report struct {
	Total        int   `json:"total_benchmarks"`
	Regressions  int   `json:"regressions"`
	Improvements int   `json:"improvements"`
	Unchanged    int   `json:"unchanged"`
	New          int   `json:"new_benchmarks"`
	Missing      int   `json:"missing_baseline"`
	Rows         []row `json:"results"`
	Failed       bool  `json:"regression_failed"`
}

func main() {
	jsonOut := flag.Bool("json", false, "emit the report as JSON")
	threshold := flag.Float64("threshold", defaultRegressCutoff, "regression cutoff as a fraction (0.2 = 20% slower)")
	verbose := flag.Bool("verbose", false, "list unchanged, new, and missing benchmarks too")
	failOnRegress := flag.Bool("fail", true, "exit 1 when a regression is found")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run scripts/bench-compare.go [options] <current.txt> <baseline.txt>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	current, err := loadBenchFile(flag.Arg(0))
	if err != nil {
		fatalf("read %s: %v", flag.Arg(0), err)
	}
	baseline, err := loadBenchFile(flag.Arg(1))
	if err != nil {
		fatalf("read %s: %v", flag.Arg(1), err)
	}

	rep := buildReport(current, baseline, *threshold, *verbose)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fatalf("encode report: %v", err)
		}
	} else {
		printReport(rep, *threshold)
	}

	if *failOnRegress && rep.Failed {
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadBenchFile extracts ns/op per benchmark from `go test -bench`
// output. Non-benchmark lines (PASS, ok, build noise) fall through.
func loadBenchFile(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	results := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name, ns, ok := parseBenchLine(scanner.Text()); ok {
			results[name] = ns
		}
	}
	return results, scanner.Err()
}

// parseBenchLine pulls name and ns/op out of one result line, e.g.
//
//	BenchmarkSearchClasses_Scale/scale_1000-8  500  240310 ns/op  ...
//
// The -N GOMAXPROCS suffix is stripped so runs from machines with
// different core counts still line up.
func parseBenchLine(line string) (string, float64, bool) {
	if !strings.HasPrefix(line, "Benchmark") {
		return "", 0, false
	}
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return "", 0, false
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return "", 0, false
	}

	name := fields[0]
	if i := strings.LastIndex(name, "-"); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			name = name[:i]
		}
	}

	// Measurements come as value/unit pairs after the iteration count;
	// find the ns/op pair wherever it sits.
	for i := 2; i+1 < len(fields); i += 2 {
		if fields[i+1] != "ns/op" {
			continue
		}
		ns, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return "", 0, false
		}
		return name, ns, true
	}
	return "", 0, false
}

func buildReport(current, baseline map[string]float64, cutoff float64, verbose bool) *report {
	rep := &report{}

	for name, cur := range current {
		rep.Total++

		base, ok := baseline[name]
		if !ok {
			rep.New++
			if verbose {
				rep.Rows = append(rep.Rows, row{Name: name, Current: cur, Status: "NEW"})
			}
			continue
		}

		// Positive delta = slower.
		var delta float64
		if base > 0 {
			delta = (cur - base) / base
		}

		r := row{Name: name, Current: cur, Baseline: base, DeltaPct: delta * 100}
		switch {
		case delta > cutoff:
			r.Status = "REGRESSION"
			rep.Regressions++
			rep.Failed = true
		case delta < -improveCutoff:
			r.Status = "IMPROVED"
			rep.Improvements++
		default:
			r.Status = "OK"
			rep.Unchanged++
		}

		if r.Status != "OK" || verbose {
			rep.Rows = append(rep.Rows, r)
		}
	}

	for name, base := range baseline {
		if _, ok := current[name]; ok {
			continue
		}
		rep.Missing++
		if verbose {
			rep.Rows = append(rep.Rows, row{Name: name, Baseline: base, Status: "MISSING"})
		}
	}

	// Map iteration order is random; sort so reports diff cleanly.
	sort.Slice(rep.Rows, func(i, j int) bool { return rep.Rows[i].Name < rep.Rows[j].Name })

	return rep
}

func printReport(rep *report, cutoff float64) {
	fmt.Printf("benchmarks: %d   regressed: %d (>%.0f%% slower)   improved: %d   unchanged: %d   new: %d   missing: %d\n\n",
		rep.Total, rep.Regressions, cutoff*100, rep.Improvements, rep.Unchanged, rep.New, rep.Missing)

	if len(rep.Rows) > 0 {
		fmt.Printf("%-52s %14s %14s %9s\n", "BENCHMARK", "CURRENT", "BASELINE", "DELTA")
		for _, r := range rep.Rows {
			name := r.Name
			if len(name) > 52 {
				name = name[:49] + "..."
			}
			switch r.Status {
			case "NEW":
				fmt.Printf("%-52s %11.0f ns %14s %9s [NEW]\n", name, r.Current, "-", "-")
			case "MISSING":
				fmt.Printf("%-52s %14s %11.0f ns %9s [MISSING]\n", name, "-", r.Baseline, "-")
			default:
				tag := "[OK]"
				switch r.Status {
				case "REGRESSION":
					tag = "[REGRESS]"
				case "IMPROVED":
					tag = "[FASTER]"
				}
				fmt.Printf("%-52s %11.0f ns %11.0f ns %+8.1f%% %s\n", name, r.Current, r.Baseline, r.DeltaPct, tag)
			}
		}
		fmt.Println()
	}

	if rep.Failed {
		fmt.Printf("FAILED: %d benchmark(s) regressed by more than %.0f%%.\n", rep.Regressions, cutoff*100)
	} else {
		fmt.Println("PASSED: no significant regressions detected.")
	}
}
