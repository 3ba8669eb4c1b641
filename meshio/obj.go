// Package meshio reads meshes from Wavefront OBJ files and writes hull sets
// back out as OBJ or YAML.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"hullbridge/vhacd"
)

// ErrMalformedOBJ is returned for OBJ input that cannot be parsed.
var ErrMalformedOBJ = errors.New("meshio: malformed OBJ")

// ParseError locates an OBJ problem.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("meshio: line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrMalformedOBJ }

// ReadOBJFile opens path and calls ReadOBJ.
func ReadOBJFile(path string) (vhacd.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return vhacd.Mesh{}, fmt.Errorf("open mesh: %w", err)
	}
	defer f.Close()
	return ReadOBJ(f)
}

// ReadOBJ parses vertices and faces. Polygons are fan-triangulated, face
// tokens may carry texture and normal indices (v/vt/vn) and negative
// indices count back from the latest vertex. Everything else is ignored.
func ReadOBJ(r io.Reader) (vhacd.Mesh, error) {
	var (
		points    []float32
		triangles []int32
		line      int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return vhacd.Mesh{}, &ParseError{line, "vertex needs three coordinates"}
			}
			for _, f := range fields[1:4] {
				x, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return vhacd.Mesh{}, &ParseError{line, fmt.Sprintf("bad coordinate %q", f)}
				}
				points = append(points, float32(x))
			}

		case "f":
			if len(fields) < 4 {
				return vhacd.Mesh{}, &ParseError{line, "face needs at least three vertices"}
			}
			count := len(points) / 3
			idx := make([]int32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				v, err := faceIndex(tok, count)
				if err != nil {
					return vhacd.Mesh{}, &ParseError{line, err.Error()}
				}
				idx = append(idx, v)
			}
			for k := 1; k+1 < len(idx); k++ {
				triangles = append(triangles, idx[0], idx[k], idx[k+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return vhacd.Mesh{}, fmt.Errorf("read mesh: %w", err)
	}

	if len(points) == 0 || len(triangles) == 0 {
		return vhacd.Mesh{}, fmt.Errorf("%w: %d vertices and %d faces",
			ErrMalformedOBJ, len(points)/3, len(triangles)/3)
	}
	return vhacd.NewMesh(points, triangles), nil
}

// faceIndex resolves one face token to a zero-based vertex index.
func faceIndex(tok string, count int) (int32, error) {
	if i := strings.IndexByte(tok, '/'); i >= 0 {
		tok = tok[:i]
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("bad vertex reference %q", tok)
	}
	if n < 0 {
		n = count + n + 1
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("vertex reference %s out of range (%d vertices so far)", tok, count)
	}
	return int32(n - 1), nil
}

// WriteOBJ writes each hull as its own object named hull_<i>. Indices are
// global across objects as OBJ requires.
func WriteOBJ(w io.Writer, hulls []*vhacd.ConvexHull) error {
	bw := bufio.NewWriter(w)
	base := 1
	for i, h := range hulls {
		fmt.Fprintf(bw, "o hull_%d\n", i)
		for p := 0; p+2 < len(h.Points); p += 3 {
			fmt.Fprintf(bw, "v %s %s %s\n",
				formatFloat(h.Points[p]), formatFloat(h.Points[p+1]), formatFloat(h.Points[p+2]))
		}
		for t := 0; t+2 < len(h.Triangles); t += 3 {
			fmt.Fprintf(bw, "f %d %d %d\n",
				int(h.Triangles[t])+base, int(h.Triangles[t+1])+base, int(h.Triangles[t+2])+base)
		}
		base += h.NPoints()
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
