// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shaders

import (
	"os"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestShaderSources(t *testing.T) {
	c := qt.New(t)
	for name, terms := range map[string][]string{
		"geometry.frag":  {"ALPHA_CUTOFF = 0.125", "discard"},
		"light.frag":     {"KNEE = 0.31", "mix(falloff, falloff4, KNEE)", "1.0 / (1.0 + dist2)", "128.0 * exp2(8.0 * nor_smooth.w - 4.0)", "(exponent + 8.0) / (8.0 * PI)"},
		"composite.frag": {"hdr / (1.0 + luminance(hdr))", "atan(dir.z, dir.x)", "acos(", "quat_mul(pc.cam_rot, ray)", "vec4 cam_proj;"},
		"composite.vert": {"out_ndc = pos"},
	} {
		src, err := os.ReadFile(name)
		c.Assert(err, qt.IsNil)
		for _, term := range terms {
			c.Assert(strings.Contains(string(src), term), qt.Equals, true, qt.Commentf("%s: %q", name, term))
		}
	}
}
