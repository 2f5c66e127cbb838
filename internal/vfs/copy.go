package vfs

import "context"

// CopyTree copies the subtree at path from src into dst at the same path.
// Missing ancestor directories in dst are created. Copying a single file
// works too.
func CopyTree(ctx context.Context, src, dst FileSystem, path string) error {
	path = Normalize(path)

	info, err := src.Stat(ctx, path)
	if err != nil {
		return err
	}
	if info.IsFile {
		if dir := Dir(path); dir != "/" {
			if err := dst.Mkdir(ctx, dir, MkdirOptions{Recursive: true}); err != nil {
				return err
			}
		}
		data, err := src.ReadFile(ctx, path)
		if err != nil {
			return err
		}
		return dst.WriteFile(ctx, path, data)
	}

	if err := dst.Mkdir(ctx, path, MkdirOptions{Recursive: true}); err != nil {
		return err
	}
	entries, err := src.ReadDirWithTypes(ctx, path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := CopyTree(ctx, src, dst, Join(path, entry.Name)); err != nil {
			return err
		}
	}
	return nil
}
