package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/sirupsen/logrus"
)

// FSSource reads skills from a directory tree. Every directory holding a SKILL.md
// is a skill; its path relative to the root is the skill id.
type FSSource struct {
	root string
}

// NewFSSource creates a filesystem source rooted at dir.
func NewFSSource(dir string) (*FSSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &FSSource{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute corpus root.
func (s *FSSource) Root() string {
	return s.root
}

// Stat counts SKILL.md files and finds the newest modification time without reading bodies.
func (s *FSSource) Stat(ctx context.Context) (*domain.CorpusStat, error) {
	stat := &domain.CorpusStat{}
	err := s.walk(ctx, func(_ string, info fs.FileInfo) error {
		stat.Count++
		if mt := info.ModTime(); mt.After(stat.LatestModified) {
			stat.LatestModified = mt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// Load parses every SKILL.md. Unreadable or malformed documents are skipped with a warning.
func (s *FSSource) Load(ctx context.Context) ([]*domain.RawSkill, error) {
	var skills []*domain.RawSkill
	err := s.walk(ctx, func(p string, _ fs.FileInfo) error {
		skillDir, err := filepath.Rel(s.root, filepath.Dir(p))
		if err != nil {
			return err
		}
		skillDir = filepath.ToSlash(skillDir)
		if skillDir == "." {
			skillDir = ""
		}

		content, err := os.ReadFile(p)
		if err != nil {
			logrus.WithError(err).WithField("path", p).Warn("skipping unreadable skill")
			return nil
		}

		raw, err := NewRawSkill(skillDir, filepath.Base(s.root), content)
		if err != nil {
			logrus.WithError(err).WithField("path", p).Warn("skipping malformed skill")
			return nil
		}
		skills = append(skills, raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return skills, nil
}

// ReadFile reads relPath inside the skill directory skillDir.
func (s *FSSource) ReadFile(_ context.Context, skillDir, relPath string, maxBytes int64) (*domain.SkillFile, error) {
	rel, err := cleanRelPath(relPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, filepath.FromSlash(skillDir))
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if !within(dir, target) {
		return nil, domain.ErrPathTraversal
	}

	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, notFound(err)
	}
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return nil, notFound(err)
	}
	if !within(resolvedDir, resolved) {
		return nil, domain.ErrPathTraversal
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, notFound(err)
	}
	if info.IsDir() {
		return nil, domain.ErrFileNotFound
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, notFound(err)
	}
	if !utf8.Valid(content) {
		return nil, domain.ErrFileNotText
	}

	return &domain.SkillFile{
		Path:    rel,
		Content: string(content),
		Size:    int64(len(content)),
	}, nil
}

// walk visits every SKILL.md under the root, skipping hidden directories.
// A missing root is an empty corpus.
func (s *FSSource) walk(ctx context.Context, visit func(path string, info fs.FileInfo) error) error {
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != SkillFileName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return visit(p, info)
	})
	return err
}

// Dirs returns every non-hidden directory under the root, for change watchers.
func (s *FSSource) Dirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	return dirs, err
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrFileNotFound
	}
	return err
}
