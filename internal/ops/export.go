package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/form"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Owner  string `json:"-"`
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`   // default: <exports>/<name>-<timestamp>.<ext>
	Format string `json:"format,omitempty"` // json or yaml; taken from Path when set
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string      `json:"path"`
	Format     form.Format `json:"format"`
	Elements   int         `json:"elements"`
	ExportedAt int64       `json:"exported_at"`
}

// Export writes a form's design to a JSON or YAML file. The file is written
// next to its destination and renamed into place, so an existing file
// survives a failed export.
func (s *Service) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	owner, err := requireOwner(input.Owner)
	if err != nil {
		return nil, err
	}
	if err := requireID(input.ID); err != nil {
		return nil, err
	}

	f, err := s.store.GetForm(ctx, owner, input.ID)
	if err != nil {
		return nil, err
	}
	elements, err := s.decodeElements(f.Content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	exportPath, format, err := s.exportTarget(input, f.Name, now.Format("2006-01-02T150405"))
	if err != nil {
		return nil, err
	}
	if err := ValidatePath(exportPath, PathCheckWrite, s.cfg, s.exportsDir); err != nil {
		return nil, err
	}

	data, err := form.MarshalDocument(form.NewDocument(f, elements, now.Unix()), format)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("export")
	}
	if err := writeFileAtomic(exportPath, data); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Elements:   len(elements),
		ExportedAt: now.Unix(),
	}, nil
}

// exportTarget resolves the destination path and its format.
func (s *Service) exportTarget(input ExportInput, name, timestamp string) (string, form.Format, error) {
	if input.Path != "" {
		format, err := form.FormatFromPath(input.Path)
		if err != nil {
			return "", "", err
		}
		if input.Format != "" {
			requested, err := form.ParseFormat(input.Format)
			if err != nil {
				return "", "", err
			}
			if requested != format {
				return "", "", errors.NewInvalidRequest(
					fmt.Sprintf("format %s does not match the %s extension", requested, filepath.Ext(input.Path)))
			}
		}
		return input.Path, format, nil
	}

	format, err := form.ParseFormat(input.Format)
	if err != nil {
		return "", "", err
	}
	dir := s.exportsDir
	if dir == "" {
		if dir, err = DefaultExportsDir(); err != nil {
			return "", "", err
		}
	}
	file := form.SanitizeForFilename(name) + "-" + timestamp + format.Extension()
	return filepath.Join(dir, file), format, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it over
// path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted since validation.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}

	// On Windows os.Rename fails when the destination exists. Fail and keep
	// the existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
