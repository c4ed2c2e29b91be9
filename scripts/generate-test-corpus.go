//go:build ignore

// Package main generates synthetic symbol-dump corpora for benchmarking
// and manual testing.
// Usage: go run scripts/generate-test-corpus.go -dumps 50 -classes 200 -output testdata/bench
//
// The generated dumps mirror what a real extraction pipeline emits:
// dotted package hierarchies, camel-case class names, nested classes
// with '$' separators, a sprinkling of compiler-synthesized classes,
// and method/field records under each class.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numDumps   = flag.Int("dumps", 20, "Number of dump files to generate")
	numClasses = flag.Int("classes", 100, "Number of classes per dump file")
	outputDir  = flag.String("output", "testdata/bench", "Output directory")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// record matches the symbol-dump line format consumed by the indexer.
type record struct {
	FQN        string `json:"fqn"`
	File       string `json:"file"`
	Kind       string `json:"kind"`
	Synthetic  bool   `json:"synthetic,omitempty"`
	Decompiled bool   `json:"decompiled,omitempty"`
}

// Word pools for generating realistic identifiers
var (
	packages = []string{
		"util", "json", "xml", "net", "core", "auth", "db", "cache",
		"ui", "metrics", "io", "text", "time", "crypto", "codec",
	}
	orgs = []string{
		"com.acme", "org.example", "io.vertex", "net.baseline",
	}
	adjectives = []string{
		"Async", "Lazy", "Cached", "Buffered", "Remote", "Local",
		"Default", "Abstract", "Composite", "Chained", "Pooled",
	}
	nouns = []string{
		"Handler", "Manager", "Service", "Controller", "Processor",
		"Engine", "Client", "Server", "Worker", "Factory",
		"Builder", "Parser", "Validator", "Formatter", "Converter",
		"Cache", "Store", "Queue", "Pool", "Buffer",
		"Router", "Dispatcher", "Scheduler", "Monitor", "Registry",
	}
	verbs = []string{
		"process", "handle", "execute", "run", "start",
		"stop", "create", "delete", "update", "read",
		"parse", "format", "validate", "convert", "transform",
		"send", "receive", "fetch", "store", "flush",
	}
	fields = []string{
		"config", "logger", "state", "buffer", "count",
		"name", "timeout", "retries", "capacity", "parent",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d dumps x %d classes in %s...\n", *numDumps, *numClasses, *outputDir)

	symbols := 0
	for i := 0; i < *numDumps; i++ {
		name := fmt.Sprintf("lib%03d.symbols.jsonl", i)
		n, err := generateDump(rng, filepath.Join(*outputDir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", name, err)
			os.Exit(1)
		}
		symbols += n
	}

	fmt.Printf("Generated %d symbols across %d dump files.\n", symbols, *numDumps)
}

// generateDump writes one dump file and returns the number of records.
func generateDump(rng *rand.Rand, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	written := 0
	for i := 0; i < *numClasses; i++ {
		pkg := fmt.Sprintf("%s.%s", pick(rng, orgs), pick(rng, packages))
		class := pick(rng, adjectives) + pick(rng, nouns)
		fqn := fmt.Sprintf("%s.%s", pkg, class)
		src := fmt.Sprintf("file:///src/%s/%s.java", pkg, class)

		// A slice of real codebases is inner and synthetic classes;
		// those exercise the '$' penalty path.
		switch rng.Intn(20) {
		case 0:
			fqn = fqn + "$" + pick(rng, nouns)
		case 1:
			if err := enc.Encode(record{
				FQN: fmt.Sprintf("%s$%d", fqn, 1+rng.Intn(3)), File: src,
				Kind: "class", Synthetic: true,
			}); err != nil {
				return written, err
			}
			written++
		}

		if err := enc.Encode(record{FQN: fqn, File: src, Kind: "class"}); err != nil {
			return written, err
		}
		written++

		for m := 0; m < 2+rng.Intn(5); m++ {
			method := fmt.Sprintf("%s.%s%s", fqn, pick(rng, verbs), pick(rng, nouns))
			if err := enc.Encode(record{FQN: method, File: src, Kind: "method"}); err != nil {
				return written, err
			}
			written++
		}

		for fd := 0; fd < rng.Intn(4); fd++ {
			field := fmt.Sprintf("%s.%s", fqn, pick(rng, fields))
			if err := enc.Encode(record{FQN: field, File: src, Kind: "field"}); err != nil {
				return written, err
			}
			written++
		}
	}

	return written, w.Flush()
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}
