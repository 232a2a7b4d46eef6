// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar builds, lists and extracts kar asset archives.
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
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/nice/utility/kar"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil && u.Name != "" {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the file given")
	compress        = flag.String("c", "", "Compress the given file/folder")
	list            = flag.String("l", "", "List the contents of the file given")
	dstFile         = flag.String("f", "out.kar", "Destination file")
	dstDir          = flag.String("d", ".", "Destination directory when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal(errors.New("only one operation at a time"))
	}

	var err error
	switch {
	case *compress != "":
		err = compressFiles(*compress, *dstFile)
	case *extract != "":
		err = extractFiles(*extract, *dstDir)
	case *list != "":
		err = listFiles(*list, os.Stdout)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newBar(size int64, description string) *progressbar.ProgressBar {
	if *silent {
		return progressbar.DefaultBytesSilent(size, description)
	}
	return progressbar.DefaultBytes(size, description)
}

// collect returns the files under root with their archive names,
// which are slash separated and relative to root.
func collect(root string) (map[string]string, int64, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, 0, err
	}
	files := make(map[string]string)
	if !info.IsDir() {
		files[filepath.Base(root)] = root
		return files, info.Size(), nil
	}

	var total int64
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = path
		total += info.Size()
		return nil
	})
	return files, total, err
}

func compressFiles(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	files, total, err := collect(src)
	if err != nil {
		return err
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	bar := newBar(total, "compressing")
	for archiveName, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = karBuilder.Add(archiveName, io.TeeReader(f, bar))
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	bar.Finish()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	written, err := karBuilder.WriteTo(out)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"files": karBuilder.Len(),
		"bytes": written,
	}).Info("archive written")
	return nil
}

func extractFiles(src, dst string) error {
	archive, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer archive.Close()

	var total int64
	for _, entry := range archive.Header().Index {
		total += entry.Size
	}
	bar := newBar(total, "extracting")

	root := filepath.Clean(dst)
	for _, name := range archive.List() {
		target := filepath.Join(root, filepath.FromSlash(name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("%s: escapes the destination directory", name)
		}
		if err := extractFile(archive, name, target, bar); err != nil {
			return err
		}
	}
	return bar.Finish()
}

func extractFile(archive *kar.File, name, target string, bar io.Writer) error {
	r, err := archive.Open(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(io.MultiWriter(f, bar), r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if n != r.Size() {
		return fmt.Errorf("%s: %w", name, kar.ErrFileFormat)
	}
	return nil
}

func listFiles(src string, w io.Writer) error {
	archive, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer archive.Close()

	header := archive.Header()
	fmt.Fprintf(w, "author: %s, version: %d, created: %s\n",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCOMPRESSED")
	for _, name := range archive.List() {
		entry, _ := header.Lookup(name)
		fmt.Fprintf(tw, "%s\t%d\t%d\n", name, entry.Size, entry.CompressedSize)
	}
	return tw.Flush()
}
