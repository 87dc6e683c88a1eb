package decode

import (
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Registry is an immutable protobuf type registry built once at
// worker start-up from a directory of compiled descriptor sets
// (*.protoset / *.desc files, each a serialized
// descriptorpb.FileDescriptorSet). It backs the decoder pool's dynamic
// decode tier: message types not covered by the fast known-type path
// are looked up here by fully-qualified name.
type Registry struct {
	files *protoregistry.Files
	types *protoregistry.Types
}

// LoadRegistry reads every *.protoset/*.desc file under dir and merges
// their file descriptors into one registry. An empty or missing dir
// yields an empty, but valid, Registry: the dynamic tier then always
// misses and callers fall through to the opaque fallback.
func LoadRegistry(dir string) (*Registry, error) {
	reg := &Registry{
		files: new(protoregistry.Files),
		types: new(protoregistry.Types),
	}
	if dir == "" {
		return reg, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("decode: read descriptor dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".protoset" && ext != ".desc" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("decode: read %s: %w", path, err)
		}
		var fdset descriptorpb.FileDescriptorSet
		if err := proto.Unmarshal(b, &fdset); err != nil {
			return nil, fmt.Errorf("decode: unmarshal descriptor set %s: %w", path, err)
		}
		for _, fdProto := range fdset.File {
			fd, err := protodesc.NewFile(fdProto, reg.files)
			if err != nil {
				// Dependency ordering issues are common across unrelated
				// descriptor sets retrieved independently; skip and let a
				// later file in the directory satisfy the dependency.
				continue
			}
			if err := reg.files.RegisterFile(fd); err != nil {
				continue
			}
			registerMessageTypes(reg.types, fd)
		}
	}
	return reg, nil
}

func registerMessageTypes(types *protoregistry.Types, fd protoreflect.FileDescriptor) {
	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		_ = types.RegisterMessage(dynamicpb.NewMessageType(msgs.Get(i)))
	}
}

// lookup returns a dynamicpb message descriptor for fully-qualified
// name, and false if the registry has no such type.
func (r *Registry) lookup(fqName protoreflect.FullName) (protoreflect.MessageType, bool) {
	if r == nil {
		return nil, false
	}
	mt, err := r.types.FindMessageByName(fqName)
	if err != nil {
		return nil, false
	}
	return mt, true
}

// decodeDynamic decodes value against the descriptor registered for
// fqName, producing a map keyed by the declared (snake_case) field
// names with protojson's scalar conventions: bytes are base64 strings,
// 64-bit integers are decimal strings, enums are their string name.
func (r *Registry) decodeDynamic(fqName protoreflect.FullName, value []byte) (map[string]any, bool, error) {
	mt, ok := r.lookup(fqName)
	if !ok {
		return nil, false, nil
	}
	msg := dynamicpb.NewMessage(mt.Descriptor())
	if err := proto.Unmarshal(value, msg); err != nil {
		return nil, true, err
	}
	return messageToMap(msg), true, nil
}

// messageToMap walks a protoreflect.Message and produces a
// protojson-shaped map: field names as declared (snake_case, matching
// proto convention), bytes as base64, int64/uint64 as decimal strings,
// enums as their name.
func messageToMap(msg protoreflect.Message) map[string]any {
	out := map[string]any{}
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		out[string(fd.Name())] = fieldValueToAny(fd, v)
		return true
	})
	return out
}

func fieldValueToAny(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	if fd.IsList() {
		list := v.List()
		items := make([]any, list.Len())
		for i := 0; i < list.Len(); i++ {
			items[i] = scalarToAny(fd, list.Get(i))
		}
		return items
	}
	if fd.IsMap() {
		m := v.Map()
		items := map[string]any{}
		m.Range(func(mk protoreflect.MapKey, mv protoreflect.Value) bool {
			items[mk.String()] = scalarToAny(fd.MapValue(), mv)
			return true
		})
		return items
	}
	return scalarToAny(fd, v)
}

func scalarToAny(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return messageToMap(v.Message())
	case protoreflect.BytesKind:
		return bytesToBase64(v.Bytes())
	case protoreflect.EnumKind:
		ev := fd.Enum().Values().ByNumber(v.Enum())
		if ev == nil {
			return int32(v.Enum())
		}
		return string(ev.Name())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return fmt.Sprintf("%d", v.Int())
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return fmt.Sprintf("%d", v.Uint())
	default:
		return v.Interface()
	}
}
