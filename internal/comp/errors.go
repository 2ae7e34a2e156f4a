package comp

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
)

// ErrConnectionClosed is returned by Run when the event source reports that
// the display connection went away.
var ErrConnectionClosed = errors.New("display connection closed")

func allocError(what string, err error) error {
	return fmt.Errorf("allocate %s id: %w", what, err)
}

// ErrorName returns the symbolic name of a protocol error. Extension errors
// of the region, damage and render ranges are named explicitly; core errors
// use the name the protocol binding attaches to them.
func ErrorName(err xgb.Error) string {
	switch err.(type) {
	case xfixes.BadRegionError:
		return "BadRegion"
	case damage.BadDamageError:
		return "BadDamage"
	case render.PictFormatError:
		return "BadPictFormat"
	case render.PictureError:
		return "BadPicture"
	case render.PictOpError:
		return "BadPictOp"
	case render.GlyphSetError:
		return "BadGlyphSet"
	case render.GlyphError:
		return "BadGlyph"
	}

	v := errorStruct(err)
	if !v.IsValid() {
		return "unknown"
	}
	f := v.FieldByName("NiceName")
	if f.Kind() != reflect.String || f.String() == "" {
		return "unknown"
	}
	name := f.String()
	if !strings.HasPrefix(name, "Bad") {
		name = "Bad" + name
	}
	return name
}

// errorAttrs describes err for the log: name, numeric code when known,
// opcodes where the error carries them, sequence and offending resource.
func errorAttrs(err xgb.Error, code byte, known bool, seq uint64) []any {
	attrs := []any{slog.String("error", ErrorName(err))}
	if known {
		attrs = append(attrs, slog.Int("code", int(code)))
	}
	attrs = append(attrs,
		slog.Uint64("sequence", seq),
		slog.Uint64("bad_id", uint64(err.BadId())),
	)
	if v := errorStruct(err); v.IsValid() {
		if f := v.FieldByName("MajorOpcode"); f.IsValid() && f.CanUint() {
			attrs = append(attrs, slog.Uint64("major", f.Uint()))
		}
		if f := v.FieldByName("MinorOpcode"); f.IsValid() && f.CanUint() {
			attrs = append(attrs, slog.Uint64("minor", f.Uint()))
		}
	}
	return attrs
}

func errorStruct(err xgb.Error) reflect.Value {
	v := reflect.ValueOf(err)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v
}
