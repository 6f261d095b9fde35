// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/basalt3d/basalt/bar"
)

func init() {
	if u, err := user.Current(); err == nil {
		currentUserName = u.Name
	} else {
		currentUserName = "unknown"
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the given archive")
	compress        = flag.String("c", "", "Compress the given file/folder")
	dstFile         = flag.String("f", "out.bar", "Destination file")
	dstDir          = flag.String("d", ".", "Destination directory for extraction")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	var opMade bool
	flag.Parse()

	if *extract != "" && *compress != "" {
		panic(errors.New("only one operation at a time"))
	}

	if *extract != "" {
		opMade = true
		if err := extractFiles(); err != nil {
			panic(err)
		}
	}

	if *compress != "" {
		opMade = true
		if err := compressFiles(); err != nil {
			panic(err)
		}
	}

	if !opMade {
		flag.PrintDefaults()
	}
}

func compressFiles() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	var filesToCompress []string
	if err := filepath.Walk(*compress, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		filesToCompress = append(filesToCompress, path)
		return nil
	}); err != nil {
		return err
	}

	archiveAuthor := *author
	if archiveAuthor == "" {
		archiveAuthor = currentUserName
	}

	barBuilder, err := bar.NewBuilder(bar.Header{
		Author:      archiveAuthor,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer barBuilder.Close()

	for _, ftc := range filesToCompress {
		f, err := os.Open(ftc)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(ftc)
		err = barBuilder.Add(name, f)
		f.Close()
		if err != nil {
			return err
		}
		if !*silent {
			fmt.Println(name)
		}
	}

	_, err = barBuilder.WriteTo(dst)
	return err
}

func extractFiles() error {
	f, err := os.Open(*extract)
	if err != nil {
		return err
	}
	defer f.Close()

	archive, err := bar.Open(f)
	if err != nil {
		return err
	}

	root := filepath.Clean(*dstDir)
	for _, entry := range archive.Index() {
		target := filepath.Join(root, filepath.FromSlash(entry.Name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %s escapes destination", entry.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		in, err := archive.Open(entry.Name)
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		out.Close()
		if err != nil {
			return err
		}
		if !*silent {
			fmt.Println(entry.Name)
		}
	}
	return nil
}
