package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
)

// magic identifies a file as one of ours; version lets a future format
// change refuse to misread an old file instead of producing garbage.
const (
	magic          uint32 = 0x4f534d52 // "OSMR"
	formatVersion  uint32 = 1
	cacheFileName         = "data.bin.zst"
)

// Path returns the single cache file path under cacheDir.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, cacheFileName)
}

// Load reads and validates the cache at path against wantFingerprint. Any
// failure — missing file, decompression error, malformed framing,
// deserialization error, or a fingerprint mismatch — is reported as a
// plain cache miss (ok == false). Load has no error result: every failure,
// including an I/O error on a file that exists, is a miss, and the caller
// falls back to preprocessing.
func Load(path string, wantFingerprint model.Fingerprint) (env *Envelope, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	raw, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, false
	}

	e, err := decodeEnvelope(raw)
	if err != nil {
		return nil, false
	}
	if e.Fingerprint != wantFingerprint {
		return nil, false
	}
	return e, true
}

// Store writes env to path atomically: it serializes to a temporary file
// in the same directory, then renames it onto path. A reader can never
// observe a partially written cache under this name.
func Store(path string, env *Envelope, compressionLevel int) error {
	raw, err := encodeEnvelope(env)
	if err != nil {
		return errors.Wrap(err, "cache: encode envelope")
	}

	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, ".data.bin.*.tmp")
	if err != nil {
		return errors.Wrap(err, "cache: create temp file")
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	zw, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(encoderLevel(compressionLevel)))
	if err != nil {
		tmp.Close()
		return errors.Wrap(err, "cache: create zstd writer")
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		tmp.Close()
		return errors.Wrap(err, "cache: write compressed envelope")
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "cache: close zstd writer")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "cache: close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "cache: rename temp file onto final path")
	}
	succeeded = true
	return nil
}

// encodeEnvelope frames the envelope as four length-prefixed gob sections
// (elements, tag sets, string pool, fingerprint) behind a magic/version
// header. gob is the one standard-library concession in this codec: the
// sections are internal-only Go structs with no cross-language or
// cross-version consumer, so a self-describing wire format buys nothing a
// length-prefixed gob stream doesn't already give for free.
func encodeEnvelope(env *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, magic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, formatVersion); err != nil {
		return nil, err
	}

	sections := []interface{}{env.Elements, env.TagSets, env.Strings, env.Fingerprint}
	for _, s := range sections {
		if err := writeSection(&buf, s); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	r := bytes.NewReader(raw)

	var gotMagic, gotVersion uint32
	if err := binary.Read(r, binary.LittleEndian, &gotMagic); err != nil {
		return nil, err
	}
	if gotMagic != magic {
		return nil, errors.New("cache: bad magic")
	}
	if err := binary.Read(r, binary.LittleEndian, &gotVersion); err != nil {
		return nil, err
	}
	if gotVersion != formatVersion {
		return nil, errors.Errorf("cache: unsupported format version %d", gotVersion)
	}

	env := &Envelope{TagSets: &model.FlatTagSetStore{}, Strings: &intern.Pool{}}
	if err := readSection(r, &env.Elements); err != nil {
		return nil, err
	}
	if err := readSection(r, env.TagSets); err != nil {
		return nil, err
	}
	if err := readSection(r, env.Strings); err != nil {
		return nil, err
	}
	if err := readSection(r, &env.Fingerprint); err != nil {
		return nil, err
	}
	return env, nil
}

func writeSection(buf *bytes.Buffer, v interface{}) error {
	var section bytes.Buffer
	if err := gob.NewEncoder(&section).Encode(v); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint64(section.Len())); err != nil {
		return err
	}
	_, err := buf.Write(section.Bytes())
	return err
}

// encoderLevel maps the configured integer compression level (the same
// small-integer scale storage.compression_level exposes, default ~3) onto
// the library's named speed tiers.
func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func readSection(r io.Reader, v interface{}) error {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	section := io.LimitReader(r, int64(n))
	return gob.NewDecoder(section).Decode(v)
}
