package host

import (
	"io"
	"os"
	"path/filepath"
)

// OSFileSystem is the real-disk FileSystem a deployed host wires in place
// of memtest.FileSystem: every path is resolved under Root, the way a
// firmware build would confine scripts to a single flash partition.
type OSFileSystem struct {
	Root string
}

var _ FileSystem = (*OSFileSystem)(nil)

func (fs *OSFileSystem) resolve(path string) string {
	return filepath.Join(fs.Root, filepath.Clean("/"+path))
}

func (fs *OSFileSystem) Open(path string, mode OpenMode) (File, error) {
	var flag int
	switch mode {
	case Read:
		flag = os.O_RDONLY
	case ReadUpdate:
		flag = os.O_RDWR
	case Write:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case WriteUpdate:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case Append:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case AppendUpdate:
		flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
	case Create:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(fs.resolve(path), flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *OSFileSystem) Mkdir(path string) error {
	return os.MkdirAll(fs.resolve(path), 0o755)
}

func (fs *OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(fs.resolve(oldPath), fs.resolve(newPath))
}

func (fs *OSFileSystem) Remove(path string) error {
	return os.Remove(fs.resolve(path))
}

func (fs *OSFileSystem) TotalSize() int64 {
	var total int64
	_ = filepath.Walk(fs.Root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if total == 0 {
		return 1 << 30
	}
	return total * 4
}

func (fs *OSFileSystem) TotalUsed() int64 {
	var used int64
	_ = filepath.Walk(fs.Root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			used += info.Size()
		}
		return nil
	})
	return used
}

type osFile struct {
	f    *os.File
	eof  bool
}

func (o *osFile) Read(p []byte) (int, error) {
	n, err := o.f.Read(p)
	if err == io.EOF {
		o.eof = true
	}
	return n, err
}

func (o *osFile) Write(p []byte) (int, error) { return o.f.Write(p) }

func (o *osFile) Seek(offset int64, whence int) (int64, error) {
	o.eof = false
	return o.f.Seek(offset, whence)
}

func (o *osFile) Close() error { return o.f.Close() }

func (o *osFile) EOF() bool { return o.eof }
