package vault

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Vault moves the state database in and out of encrypted archive files.
type Vault struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

func New(db *sql.DB, dbPath string, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{db: db, dbPath: dbPath, logger: logger}
}

// Export writes an encrypted copy of the state database to dstPath. The
// WAL is checkpointed first so the copy is a complete, consistent
// snapshot.
func (v *Vault) Export(dstPath, passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required")
	}

	if _, err := v.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("duet-export-%d.db", os.Getpid()))
	defer os.Remove(tmp)

	if err := copyFile(v.dbPath, tmp); err != nil {
		return fmt.Errorf("copy state database: %w", err)
	}

	if err := encryptFile(tmp, dstPath, passphrase); err != nil {
		return err
	}

	v.logger.Info("state exported", "path", dstPath)
	return nil
}

// Import decrypts srcPath, verifies it is an intact SQLite database, and
// replaces the state database file. The caller must reopen the database
// afterwards; existing connections still see the old file.
func (v *Vault) Import(srcPath, passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required")
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("duet-import-%d.db", os.Getpid()))
	defer os.Remove(tmp)

	if err := decryptFile(srcPath, tmp, passphrase); err != nil {
		return err
	}

	if err := checkIntegrity(tmp); err != nil {
		return err
	}

	if _, err := v.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}

	if err := copyFile(tmp, v.dbPath); err != nil {
		return fmt.Errorf("replace state database: %w", err)
	}

	os.Remove(v.dbPath + "-wal")
	os.Remove(v.dbPath + "-shm")

	v.logger.Info("state imported", "path", srcPath)
	return nil
}

func checkIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open imported db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
