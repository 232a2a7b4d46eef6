// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command nicecli prints the GPUs of the system as JSON and converts
// between ntx textures and common image files.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/nice/core"
	"github.com/devblok/nice/gfx/vkr"
	"github.com/devblok/nice/util/nmdl"
	"github.com/devblok/nice/util/ntx"
)

var (
	debug   = flag.Bool("vkdbg", false, "Enable the Vulkan validation layer")
	toPng   = flag.String("topng", "", "Convert the given ntx texture to png")
	toNtx   = flag.String("tontx", "", "Convert the given image to an ntx texture")
	linear  = flag.Bool("linear", false, "Store converted textures as linear instead of sRGB")
	model   = flag.String("model", "", "Print the materials of the given nmdl model")
	outFile = flag.String("o", "", "Output file of a conversion")
)

func main() {
	flag.Parse()

	var err error
	switch {
	case *toPng != "":
		err = convertToPng(*toPng)
	case *toNtx != "":
		err = convertToNtx(*toNtx)
	case *model != "":
		err = printModel(*model)
	default:
		err = printDevices()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func printDevices() error {
	procAddr, err := vkr.LoaderProcAddr()
	if err != nil {
		log.WithError(err).Debug("using the default vulkan loader")
		procAddr = nil
	}
	instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, procAddr, vkr.InstanceConfiguration{
		DebugMode: *debug,
	})
	if err != nil {
		return err
	}
	defer instance.Release()

	bytes, err := json.Marshal(instance.PhysicalDevicesInfo())
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bytes)
	return nil
}

func output(in, ext string) string {
	if *outFile != "" {
		return *outFile
	}
	return in + ext
}

func convertToPng(in string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	tex, err := ntx.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	dst, err := os.Create(output(in, ".png"))
	if err != nil {
		return err
	}
	defer dst.Close()
	return png.Encode(dst, tex.Image())
}

func convertToNtx(in string) error {
	if strings.EqualFold(filepath.Ext(in), ".ntx") {
		return fmt.Errorf("%s is already an ntx texture", in)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	pixels, extent, _, err := core.DecodeTexture(in, data)
	if err != nil {
		return err
	}
	if extent.Width == 0 || extent.Height == 0 {
		return errors.New("image has no pixels")
	}
	tex := ntx.FromImage(&image.NRGBA{
		Pix:    pixels,
		Stride: int(extent.Width) * 4,
		Rect:   image.Rect(0, 0, int(extent.Width), int(extent.Height)),
	}, !*linear)

	dst, err := os.Create(output(in, ".ntx"))
	if err != nil {
		return err
	}
	defer dst.Close()
	return ntx.Encode(dst, tex)
}

type modelInfo struct {
	Vertices  int            `json:"vertices"`
	Indices   int            `json:"indices"`
	Materials []materialInfo `json:"materials"`
	Ranges    []nmdl.Range   `json:"ranges"`
}

type materialInfo struct {
	Texture1  string   `json:"texture1"`
	Texture2  string   `json:"texture2"`
	BaseColor [3]uint8 `json:"baseColor"`
	Emissive  uint16   `json:"emissive"`
}

func printModel(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := nmdl.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	info := modelInfo{
		Vertices: len(m.Positions),
		Indices:  len(m.Indices),
		Ranges:   m.Ranges(),
	}
	for _, mat := range m.Materials {
		info.Materials = append(info.Materials, materialInfo{
			Texture1:  mat.Texture1Path(path),
			Texture2:  mat.Texture2Path(path),
			BaseColor: mat.BaseColor,
			Emissive:  mat.EmissiveBrightness,
		})
	}
	bytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bytes)
	return nil
}
