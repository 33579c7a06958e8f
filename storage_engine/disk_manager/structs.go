package diskmanager

import (
	"sync"

	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"
)

// ############################################# FILE DESCRIPTOR ###########################################

// FileDescriptor is a scratch file known to the disk manager. It does not
// hold an open handle: runs open and close their own handles.
type FileDescriptor struct {
	FileID   uint32
	FilePath string
}

// ############################################# DISK MANAGER #############################################

// DiskManager owns the scratch directory and the run file ID space
type DiskManager struct {
	fs         vfs.FS
	dir        string
	dirReady   bool
	files      map[uint32]*FileDescriptor // fileID -> file descriptor
	nextFileID uint32
	logger     *zap.Logger
	mu         sync.RWMutex
}
