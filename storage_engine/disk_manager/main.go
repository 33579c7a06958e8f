package diskmanager

import (
	"ExtSortDB/types"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
This is main file for disk manager
It owns:
The file system every run lives on (vfs.Default on disk, vfs.NewMem in tests)
The scratch directory, created lazily on the first allocation so that a sort
rejected by validation leaves nothing behind
Run file ID allocation and file naming (run-000001.tmp, ...)
Removal of scratch files once the caller is done with them

Opening a file for reading or writing is done here, but keeping track of
which direction a run is open in is the run's job.
*/

const (
	runFilePrefix = "run-"
	runFileSuffix = ".tmp"

	removeConcurrency = 4
)

func NewDiskManager(fs vfs.FS, dir string, logger *zap.Logger) *DiskManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskManager{
		fs:         fs,
		dir:        dir,
		files:      make(map[uint32]*FileDescriptor),
		nextFileID: 1,
		logger:     logger.With(zap.String("component", "diskmanager")),
	}
}

func (dm *DiskManager) FS() vfs.FS {
	return dm.fs
}

func (dm *DiskManager) Dir() string {
	return dm.dir
}

// AllocateFile reserves the next run file ID and its path. It does NOT
// create the file, the run writer does that when it is first opened.
func (dm *DiskManager) AllocateFile() (*FileDescriptor, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if !dm.dirReady {
		if err := dm.fs.MkdirAll(dm.dir, 0755); err != nil {
			return nil, types.WrapIO(err, "failed to create scratch dir %s", dm.dir)
		}
		dm.dirReady = true
	}

	fileID := dm.nextFileID
	dm.nextFileID++

	fd := &FileDescriptor{
		FileID:   fileID,
		FilePath: dm.fs.PathJoin(dm.dir, fmt.Sprintf("%s%06d%s", runFilePrefix, fileID, runFileSuffix)),
	}
	dm.files[fileID] = fd

	dm.logger.Debug("allocated run file", zap.Uint32("fileID", fileID), zap.String("path", fd.FilePath))
	return fd, nil
}

// Create opens a scratch file for writing, truncating previous content.
func (dm *DiskManager) Create(fileID uint32) (vfs.File, error) {
	fd, err := dm.GetFileDescriptor(fileID)
	if err != nil {
		return nil, err
	}
	f, err := dm.fs.Create(fd.FilePath)
	if err != nil {
		return nil, types.WrapIO(err, "failed to create %s", fd.FilePath)
	}
	return f, nil
}

// Open opens a scratch file for reading from the start.
func (dm *DiskManager) Open(fileID uint32) (vfs.File, error) {
	fd, err := dm.GetFileDescriptor(fileID)
	if err != nil {
		return nil, err
	}
	f, err := dm.fs.Open(fd.FilePath)
	if err != nil {
		return nil, types.WrapIO(err, "failed to open %s", fd.FilePath)
	}
	return f, nil
}

// OpenInput opens a file that is not managed by the disk manager, such as
// the sort input, on the same file system.
func (dm *DiskManager) OpenInput(path string) (vfs.File, error) {
	f, err := dm.fs.Open(path)
	if err != nil {
		return nil, types.WrapIO(err, "failed to open input %s", path)
	}
	return f, nil
}

// FileSize returns the size in bytes of a scratch file.
func (dm *DiskManager) FileSize(fileID uint32) (int64, error) {
	fd, err := dm.GetFileDescriptor(fileID)
	if err != nil {
		return 0, err
	}
	info, err := dm.fs.Stat(fd.FilePath)
	if err != nil {
		return 0, types.WrapIO(err, "failed to stat %s", fd.FilePath)
	}
	return info.Size(), nil
}

// GetFileDescriptor returns the file descriptor for a given file ID
func (dm *DiskManager) GetFileDescriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, types.InvariantErrorf("run file %d not found", fileID)
	}
	return fd, nil
}

// FileIDs returns the IDs of all scratch files still managed, ascending.
func (dm *DiskManager) FileIDs() []uint32 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	ids := make([]uint32, 0, len(dm.files))
	for id := range dm.files {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Release moves a scratch file to dest and stops managing it. Used to hand
// the final run over to the caller. When dest is on another device the file
// is copied and the scratch copy removed.
func (dm *DiskManager) Release(fileID uint32, dest string) error {
	fd, err := dm.GetFileDescriptor(fileID)
	if err != nil {
		return err
	}
	if renameErr := dm.fs.Rename(fd.FilePath, dest); renameErr != nil {
		dm.logger.Warn("rename failed, copying run file",
			zap.String("path", fd.FilePath), zap.String("dest", dest), zap.Error(renameErr))
		if err := vfs.Copy(dm.fs, fd.FilePath, dest); err != nil {
			return types.WrapIO(errors.CombineErrors(renameErr, err), "failed to move %s to %s", fd.FilePath, dest)
		}
		if err := dm.fs.Remove(fd.FilePath); err != nil {
			return types.WrapIO(err, "failed to remove %s after copying it to %s", fd.FilePath, dest)
		}
	}

	dm.mu.Lock()
	delete(dm.files, fileID)
	dm.mu.Unlock()

	dm.logger.Info("released run file", zap.Uint32("fileID", fileID), zap.String("dest", dest))
	return nil
}

// RemoveFiles deletes scratch files. Files that were allocated but never
// created are not an error.
func (dm *DiskManager) RemoveFiles(fileIDs []uint32) error {
	fds := make([]*FileDescriptor, 0, len(fileIDs))
	for _, id := range fileIDs {
		fd, err := dm.GetFileDescriptor(id)
		if err != nil {
			return err
		}
		fds = append(fds, fd)
	}

	var g errgroup.Group
	g.SetLimit(removeConcurrency)
	for _, fd := range fds {
		g.Go(func() error {
			if err := dm.fs.Remove(fd.FilePath); err != nil && !oserror.IsNotExist(err) {
				return types.WrapIO(err, "failed to remove %s", fd.FilePath)
			}
			dm.mu.Lock()
			delete(dm.files, fd.FileID)
			dm.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	dm.logger.Info("removed run files", zap.Int("count", len(fileIDs)))
	return nil
}
