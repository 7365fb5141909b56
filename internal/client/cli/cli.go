package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ringsync/ringsync/internal/client/auth"
	"github.com/ringsync/ringsync/internal/client/iocli"
	"github.com/ringsync/ringsync/internal/client/replication"
	"github.com/ringsync/ringsync/internal/client/scoring"
	"github.com/ringsync/ringsync/internal/client/storage"
	clisync "github.com/ringsync/ringsync/internal/client/sync"
)

// KeySources задает источники ключа лицензии для команды activate
type KeySources struct {
	FromFile string
	FromArgs string
}

// Cli связывает команды терминального клиента с сервисами устройства
type Cli struct {
	io          iocli.IO
	authService *auth.Service
	replication *replication.Manager
	engine      *clisync.Engine
	coordinator *scoring.Coordinator
	queue       storage.QueueStorage
}

// New создает CLI поверх собранных сервисов
func New(
	io iocli.IO,
	authService *auth.Service,
	replicationManager *replication.Manager,
	engine *clisync.Engine,
	coordinator *scoring.Coordinator,
	queue storage.QueueStorage,
) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		replication: replicationManager,
		engine:      engine,
		coordinator: coordinator,
		queue:       queue,
	}
}

// getLicenseKey retrieves the license key from various sources with priority:
// 1. Environment variable RINGSYNC_LICENSE_KEY
// 2. File specified via --key-file
// 3. Command-line argument
// 4. Interactive prompt (fallback)
func (c *Cli) getLicenseKey(sources KeySources) (string, error) {
	// Priority 1: Environment variable
	if envKey := os.Getenv("RINGSYNC_LICENSE_KEY"); envKey != "" {
		return envKey, nil
	}

	// Priority 2: File
	if sources.FromFile != "" {
		content, err := os.ReadFile(sources.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read key file: %w", err)
		}
		key := strings.TrimSpace(string(content))
		if key == "" {
			return "", fmt.Errorf("key file is empty")
		}
		return key, nil
	}

	// Priority 3: CLI argument
	if sources.FromArgs != "" {
		return sources.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback).
	// Ключ лицензии - учетные данные, ввод не эхоится в терминал
	key, err := c.io.ReadSecret("License key: ")
	if err != nil {
		return "", fmt.Errorf("failed to read license key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("license key cannot be empty")
	}

	return key, nil
}

func PrintUsage() {
	fmt.Println("RingSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ringsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version          Show version information")
	fmt.Println("  --server URL       Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH          Path to local database (default: ringsync-client.db)")
	fmt.Println("  --key-file PATH    Path to file containing the license key")
	fmt.Println()
	fmt.Println("License Key Priority (highest to lowest):")
	fmt.Println("  1. RINGSYNC_LICENSE_KEY environment variable")
	fmt.Println("  2. --key-file (file path)")
	fmt.Println("  3. Command-line argument")
	fmt.Println("  4. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  activate [KEY]          Activate this device with a license key")
	fmt.Println("  deactivate              Remove the device session")
	fmt.Println("  status                  Show activation and queue status")
	fmt.Println("  pull                    Refresh the local mirror from the server")
	fmt.Println("  trials                  List trials from the local mirror")
	fmt.Println("  classes                 List classes from the local mirror")
	fmt.Println("  entries [CLASS_ID]      List entries, optionally for one class")
	fmt.Println("  score ENTRY_ID [flags]  Record a score for an entry")
	fmt.Println("  sync                    Deliver queued mutations to the server")
	fmt.Println("  queue                   Show pending and dead-letter mutations")
	fmt.Println("  retry MUTATION_ID       Requeue a dead-letter mutation")
	fmt.Println("  discard MUTATION_ID     Drop a dead-letter mutation")
	fmt.Println("  recover                 Reset a corrupted local database")
	fmt.Println()
	fmt.Println("Score flags:")
	fmt.Println("  --result RESULT    Q, NQ, EX, DQ or ABS (required)")
	fmt.Println("  --points N         Points earned")
	fmt.Println("  --time SECONDS     Run time in seconds")
	fmt.Println("  --faults N         Number of faults")
	fmt.Println("  --judge NAME       Judge name")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ringsync activate RSNC24-7GK2-9QPT")
	fmt.Println("  ringsync pull")
	fmt.Println("  ringsync entries class-b1f4")
	fmt.Println("  ringsync score entry-a2c8 --result Q --points 95 --time 142.7 --judge 'J. Alvarez'")
	fmt.Println("  ringsync sync")
	fmt.Println("  ringsync --server https://scores.example.com status")
}
