// Command seed-members writes gzipped member roster files for local runs.
//
//	seed-members -out data/members/roster.gz member-1 member-2
//
// With no ids a small sample roster is written.
package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

var sampleMembers = []string{
	"member-1",
	"member-2",
	"member-3",
	"demo-customer",
}

func main() {
	out := flag.String("out", "data/members/roster.gz", "roster file to write")
	flag.Parse()

	ids := flag.Args()
	if len(ids) == 0 {
		ids = sampleMembers
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if err := writeRoster(*out, ids); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}

	fmt.Printf("Created %s with %d members\n", *out, len(ids))
	fmt.Println("Set MEMBERS_ENABLED=true and MEMBERS_FILES to load it.")
}

func writeRoster(filePath string, ids []string) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(file)
	for _, id := range ids {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", id); err != nil {
			return fmt.Errorf("failed to write member id: %w", err)
		}
	}

	return gzipWriter.Close()
}
