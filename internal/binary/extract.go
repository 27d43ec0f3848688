package binary

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Extractor recovers specific executables from gzip-compressed tar archives.
// Only regular-file members are considered; directories, symlinks, and
// special files are ignored throughout.
type Extractor struct {
	logger *logrus.Entry
}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: logrus.WithField("component", "extractor"),
	}
}

// ExtractTools pulls the codex and codex-exec executables out of a
// codex-termux archive and writes them to destDir under their canonical
// names, regardless of what the archive called them internally.
func (e *Extractor) ExtractTools(archivePath, destDir string) (*ToolPaths, error) {
	members, err := scanMembers(archivePath)
	if err != nil {
		return nil, err
	}

	primary, secondary, err := SelectExecutables(members)
	switch {
	case errors.Is(err, errNoExecutables):
		return nil, &NoExecutableError{Archive: filepath.Base(archivePath)}
	case errors.Is(err, errNoSecondary):
		return nil, &AmbiguousArchiveError{
			Archive: filepath.Base(archivePath),
			Reason:  "need two distinct ELF members of executable size",
		}
	case err != nil:
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"primary":   members[primary].Name,
		"secondary": members[secondary].Name,
	}).Debug("Selected archive members")

	paths := &ToolPaths{
		Primary:   filepath.Join(destDir, ToolCodex.String()),
		Secondary: filepath.Join(destDir, ToolCodexExec.String()),
	}
	if err := e.extractMember(archivePath, primary, paths.Primary); err != nil {
		return nil, err
	}
	if err := e.extractMember(archivePath, secondary, paths.Secondary); err != nil {
		return nil, err
	}
	return paths, nil
}

// ExtractNamed pulls a single executable with the given basename out of an
// archive. The member must also clear the size floor and the ELF magic
// check: a same-named placeholder or symlink target is never accepted.
func (e *Extractor) ExtractNamed(archivePath, destDir, name string) (string, error) {
	members, err := scanMembers(archivePath)
	if err != nil {
		return "", err
	}

	idx, err := selectNamed(members, name, minNamedSize)
	if err != nil {
		return "", &NoExecutableError{Archive: filepath.Base(archivePath), Want: name}
	}

	destPath := filepath.Join(destDir, name)
	if err := e.extractMember(archivePath, idx, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// scanMembers enumerates the regular-file members of a gzip-tar archive,
// reading the first four bytes of each so selection can sniff for the
// executable magic without trusting internal file names.
func scanMembers(archivePath string) ([]Member, error) {
	tarReader, closer, err := openTarGz(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer()

	var members []Member
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		m := Member{Name: header.Name, Size: header.Size}
		if _, err := io.ReadFull(tarReader, m.Magic[:]); err != nil {
			// Shorter than four bytes: keep it with a zero magic so
			// it fails the ELF check rather than aborting the scan.
			if err != io.ErrUnexpectedEOF && err != io.EOF {
				return nil, fmt.Errorf("read member %s: %w", header.Name, err)
			}
		}
		members = append(members, m)
	}
	return members, nil
}

// extractMember reopens the archive and copies the idx-th regular-file
// member to destPath, then marks it executable. Archive layouts put tens of
// megabytes in these members, so bytes are streamed, never buffered whole.
func (e *Extractor) extractMember(archivePath string, idx int, destPath string) error {
	tarReader, closer, err := openTarGz(archivePath)
	if err != nil {
		return err
	}
	defer closer()

	n := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("member %d disappeared from %s", idx, archivePath)
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if n != idx {
			n++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("create dest dir: %w", err)
		}

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("create file %s: %w", destPath, err)
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return fmt.Errorf("write file %s: %w", destPath, err)
		}
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", destPath, err)
		}

		// Executable bits are best-effort: meaningless on some hosts,
		// and never worth aborting a completed extraction over.
		if err := os.Chmod(destPath, 0755); err != nil {
			e.logger.WithError(err).WithField("path", destPath).
				Warn("Could not mark file executable")
		}
		return nil
	}
}

// openTarGz opens archivePath as a tar stream, returning a closer that
// releases both the gzip reader and the underlying file.
func openTarGz(archivePath string) (*tar.Reader, func(), error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		archiveFile.Close()
		return nil, nil, fmt.Errorf("create gzip reader: %w", err)
	}

	closer := func() {
		gzipReader.Close()
		archiveFile.Close()
	}
	return tar.NewReader(gzipReader), closer, nil
}
