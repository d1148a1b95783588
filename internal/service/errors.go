package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"caja/internal/repository"
)

// storeError логирует сбой хранилища и оборачивает его; ErrNotFound пропускается как есть
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	logrus.WithError(err).WithField("op", op).Error("store operation failed")
	return fmt.Errorf("%s: %w", op, err)
}
