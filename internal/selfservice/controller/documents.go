package controller

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gartstein/selfservice/internal/selfservice/db"
	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/models"
	"go.uber.org/zap"
)

const certificateStampLayout = "20060102150405"

var (
	allowedExtensions = map[string]struct{}{"pdf": {}, "doc": {}, "docx": {}}
	unsafeFilename    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// SanitizeFilename reduces an uploaded filename to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilename.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// checkUpload sanitizes the filename and enforces the extension allow-list.
func checkUpload(file *models.File) (string, error) {
	if file == nil || file.Name == "" {
		return "", fmt.Errorf("%w: no file supplied", e.ErrInvalidInput)
	}
	name := SanitizeFilename(file.Name)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", e.ErrUnsupportedFileType, file.Name)
	}
	if strings.TrimSuffix(name, path.Ext(name)) == "" {
		return "", fmt.Errorf("%w: invalid filename %q", e.ErrInvalidInput, file.Name)
	}
	return name, nil
}

// UploadResume stores the resume blob as "<employee>_<name>" and records its path.
// Any previous resume blob with a different name is removed afterwards.
func (s *SelfService) UploadResume(ctx context.Context, tenant, employeeID string, file *models.File) (string, error) {
	name, err := checkUpload(file)
	if err != nil {
		return "", err
	}
	blobName := employeeID + "_" + name

	var previous string
	err = s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		if err := s.blobs.Save(ctx, tenant, blobName, file.Content); err != nil {
			return err
		}
		err := repo.WithTransaction(ctx, func(tx *db.Repository) error {
			old, err := tx.GetResumePathForUpdate(ctx, employeeID)
			if err != nil && !errors.Is(err, e.ErrNotFound) {
				return err
			}
			previous = old
			return tx.SetResumePath(ctx, employeeID, blobName)
		})
		if err != nil && previous != blobName {
			s.discardBlob(ctx, tenant, blobName)
		}
		return err
	})
	if err != nil {
		return "", wrap(err, "upload resume")
	}

	if previous != "" && previous != blobName {
		s.discardBlob(ctx, tenant, previous)
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "resume"})
	return blobName, nil
}

// DeleteResume removes the blob first and clears the path only when that succeeded.
func (s *SelfService) DeleteResume(ctx context.Context, tenant, employeeID string) error {
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		return repo.WithTransaction(ctx, func(tx *db.Repository) error {
			current, err := tx.GetResumePathForUpdate(ctx, employeeID)
			if err != nil {
				return err
			}
			if current == "" {
				return fmt.Errorf("%w: no resume on file", e.ErrNotFound)
			}
			if err := s.blobs.Delete(ctx, tenant, current); err != nil {
				return blobFailure(err)
			}
			return tx.ClearResumePath(ctx, employeeID)
		})
	})
	if err != nil {
		return wrap(err, "delete resume")
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "resume"})
	return nil
}

func (s *SelfService) ViewResume(ctx context.Context, tenant, employeeID string) (*models.File, error) {
	var file *models.File
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		profile, err := repo.GetProfile(ctx, employeeID)
		if err != nil {
			return err
		}
		if profile.ResumePath == "" {
			return fmt.Errorf("%w: no resume on file", e.ErrNotFound)
		}
		content, err := s.blobs.Read(ctx, tenant, profile.ResumePath)
		if err != nil {
			return err
		}
		file = &models.File{Name: profile.ResumePath, Content: content}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "view resume")
	}
	return file, nil
}

// UploadCertificate stores the blob as "<employee>_<YYYYMMDDHHMMSS>_<name>" and
// appends its metadata. The blob is removed again when the metadata write fails.
func (s *SelfService) UploadCertificate(ctx context.Context, tenant, employeeID string, file *models.File) (*models.Certificate, error) {
	name, err := checkUpload(file)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	blobName := fmt.Sprintf("%s_%s_%s", employeeID, now.Format(certificateStampLayout), name)

	var cert models.Certificate
	err = s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		if err := requireEmployee(ctx, repo, employeeID); err != nil {
			return err
		}
		if err := s.blobs.Save(ctx, tenant, blobName, file.Content); err != nil {
			return err
		}
		added, err := repo.AddCertificate(ctx, employeeID, models.Certificate{Filename: blobName, UploadDate: now})
		if err != nil {
			s.discardBlob(ctx, tenant, blobName)
			return err
		}
		cert = added
		return nil
	})
	if err != nil {
		return nil, wrap(err, "upload certificate")
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "certificates"})
	return &cert, nil
}

// DeleteCertificate removes the blob first and the metadata only when that succeeded.
func (s *SelfService) DeleteCertificate(ctx context.Context, tenant, employeeID string, certificateID int) error {
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		return repo.WithTransaction(ctx, func(tx *db.Repository) error {
			cert, err := tx.FindCertificate(ctx, employeeID, certificateID, true)
			if err != nil {
				return err
			}
			if err := s.blobs.Delete(ctx, tenant, cert.Filename); err != nil {
				return blobFailure(err)
			}
			_, err = tx.RemoveCertificate(ctx, employeeID, certificateID)
			return err
		})
	})
	if err != nil {
		return wrap(err, "delete certificate")
	}
	s.publish(events.ProfileUpdated, tenant, employeeID, map[string]string{"section": "certificates"})
	return nil
}

func (s *SelfService) ViewCertificate(ctx context.Context, tenant, employeeID string, certificateID int) (*models.File, error) {
	var file *models.File
	err := s.tenants.WithTenant(ctx, tenant, func(repo *db.Repository) error {
		cert, err := repo.FindCertificate(ctx, employeeID, certificateID, false)
		if err != nil {
			return err
		}
		content, err := s.blobs.Read(ctx, tenant, cert.Filename)
		if err != nil {
			return err
		}
		file = &models.File{Name: cert.Filename, Content: content}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "view certificate")
	}
	return file, nil
}

func (s *SelfService) discardBlob(ctx context.Context, tenant, name string) {
	if err := s.blobs.Delete(ctx, tenant, name); err != nil {
		s.logger.Error("Failed to remove blob",
			zap.Error(err),
			zap.String("tenant", tenant),
			zap.String("blob", name),
		)
	}
}

func blobFailure(err error) error {
	if errors.Is(err, e.ErrBlobStorage) {
		return err
	}
	return fmt.Errorf("%w: %v", e.ErrBlobStorage, err)
}
