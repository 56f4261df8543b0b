// mktrigger drops a provisioning marker into a user's home directory and
// polls it until domaind writes an outcome back. Meant for manual testing
// against a running daemon:
//
//	mktrigger -home /home/alice            # provision
//	mktrigger -home /home/alice -remove    # decommission
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

func main() {
	home := flag.String("home", "", "user home directory to drop the marker into")
	remove := flag.Bool("remove", false, "drop a removal marker instead of a provisioning one")
	timeout := flag.Duration("timeout", 2*time.Minute, "how long to wait for an outcome")
	flag.Parse()

	if *home == "" {
		flag.Usage()
		os.Exit(2)
	}

	name := ".domain"
	if *remove {
		name = ".remove-domain"
	}
	marker := filepath.Join(*home, name)

	if err := os.WriteFile(marker, nil, 0644); err != nil {
		log.Fatalf("write marker: %v", err)
	}
	log.Printf("created %s, waiting for outcome", marker)

	deadline := time.Now().Add(*timeout)
	for time.Now().Before(deadline) {
		time.Sleep(time.Second)

		data, err := os.ReadFile(marker)
		if os.IsNotExist(err) {
			// Removal markers are deleted on success.
			fmt.Println("marker deleted: done")
			return
		}
		if err != nil {
			log.Fatalf("read marker: %v", err)
		}
		if len(data) > 0 {
			fmt.Print(string(data))
			return
		}
	}
	log.Fatalf("no outcome in %s; is domaind running and watching %s?", *timeout, filepath.Dir(*home))
}
