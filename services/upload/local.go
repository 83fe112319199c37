// Package uploadsvc stores uploaded material payloads. References returned
// by Save are uuid-prefixed so repeated uploads of the same filename never
// collide.
package uploadsvc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
)

type localService struct {
	dir string
}

var _ core.UploadService = (*localService)(nil)

func NewLocalService(conf *core.Config) (*localService, error) {
	dir := conf.UploadDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(core.Getwd(), dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localService{dir: dir}, nil
}

func (svc localService) Save(filename string, data []byte) (string, error) {
	ref := uuid.New().String() + "_" + sanitize(filename)
	if err := os.WriteFile(filepath.Join(svc.dir, ref), data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return ref, nil
}

func (svc localService) Open(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(svc.dir, sanitize(ref)))
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	return data, nil
}

func (svc localService) Remove(ref string) error {
	err := os.Remove(filepath.Join(svc.dir, sanitize(ref)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload")
	}
	return nil
}

// sanitize strips path separators so a reference can never escape the
// upload dir.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == string(filepath.Separator) {
		return "unnamed"
	}
	return name
}
