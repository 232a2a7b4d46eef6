// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ntx reads and writes ntx textures. An ntx file is the three
// byte magic "ntx", a format byte, little endian u16 width and height
// followed by tightly packed pixels ready to be uploaded to the GPU.
package ntx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/devblok/nice/gfx"
)

// package errors
var (
	ErrMagic       = errors.New("ntx: not an ntx texture")
	ErrLegacyMagic = errors.New("ntx: legacy ntex texture is not supported")
	ErrFormat      = errors.New("ntx: unknown pixel format")
	ErrSize        = errors.New("ntx: pixel data does not match dimensions")
)

// Magic starts every ntx file.
const Magic = "ntx"

const legacyMagic = "ntex"

// HeaderSize is the size of the fixed header.
const HeaderSize = 8

// Format identifies the pixel encoding.
type Format uint8

// Pixel formats
const (
	FormatSrgb8 Format = iota
	FormatUnorm8
	Format10Bit
	Format10BitQ
	FormatFloat16
	FormatFloat32
)

// GfxFormat returns the GPU format pixels are uploaded as.
func (f Format) GfxFormat() (gfx.Format, error) {
	switch f {
	case FormatSrgb8:
		return gfx.FormatR8G8B8A8Srgb, nil
	case FormatUnorm8:
		return gfx.FormatR8G8B8A8Unorm, nil
	case Format10Bit, Format10BitQ:
		return gfx.FormatA2B10G10R10UnormPack32, nil
	case FormatFloat16:
		return gfx.FormatR16G16B16A16Sfloat, nil
	case FormatFloat32:
		return gfx.FormatR32G32B32A32Sfloat, nil
	default:
		return gfx.FormatUndefined, ErrFormat
	}
}

// BitsPerPixel returns the size of one pixel.
func (f Format) BitsPerPixel() int {
	gf, err := f.GfxFormat()
	if err != nil {
		return 0
	}
	return gf.BitsPerPixel()
}

// Texture is a decoded ntx texture.
type Texture struct {
	Format Format
	Width  uint16
	Height uint16
	Pixels []byte
}

// Extent returns the texture dimensions.
func (t *Texture) Extent() gfx.Extent2D {
	return gfx.Extent2D{Width: uint32(t.Width), Height: uint32(t.Height)}
}

// PixelSize returns the amount of pixel bytes the dimensions and format require.
func PixelSize(f Format, width, height uint16) int {
	return (int(width)*int(height)*f.BitsPerPixel() + 7) / 8
}

// Decode reads a texture from r.
func Decode(r io.Reader) (*Texture, error) {
	var magic [3]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("ntx: reading magic: %w", err)
	}
	if string(magic[:]) == legacyMagic[:3] {
		var x [1]byte
		if _, err := io.ReadFull(r, x[:]); err == nil && x[0] == legacyMagic[3] {
			return nil, ErrLegacyMagic
		}
		return nil, ErrMagic
	}
	if string(magic[:]) != Magic {
		return nil, ErrMagic
	}

	var header struct {
		Format Format
		Width  uint16
		Height uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("ntx: reading header: %w", err)
	}
	if _, err := header.Format.GfxFormat(); err != nil {
		return nil, err
	}

	tex := &Texture{
		Format: header.Format,
		Width:  header.Width,
		Height: header.Height,
		Pixels: make([]byte, PixelSize(header.Format, header.Width, header.Height)),
	}
	if _, err := io.ReadFull(r, tex.Pixels); err != nil {
		return nil, fmt.Errorf("ntx: reading pixels: %w", err)
	}
	return tex, nil
}

// DecodeBytes decodes a texture held in memory.
func DecodeBytes(data []byte) (*Texture, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes t to w.
func Encode(w io.Writer, t *Texture) error {
	if _, err := t.Format.GfxFormat(); err != nil {
		return err
	}
	if len(t.Pixels) != PixelSize(t.Format, t.Width, t.Height) {
		return ErrSize
	}
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(t.Pixels)))
	buf.WriteString(Magic)
	buf.WriteByte(byte(t.Format))
	binary.Write(buf, binary.LittleEndian, t.Width)
	binary.Write(buf, binary.LittleEndian, t.Height)
	buf.Write(t.Pixels)
	_, err := w.Write(buf.Bytes())
	return err
}
