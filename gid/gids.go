package gid

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// RunTag identifies a capture run (one generation of the sniffer).
	RunTag = "run"
	// BatchTag identifies one micro-batch processed by the translation worker.
	BatchTag = "tbh"
)

type tagToIDConstructor func(uuid.UUID) ID

var idConstructorMap = map[string]tagToIDConstructor{
	RunTag:   func(id uuid.UUID) ID { return NewRunID(id) },
	BatchTag: func(id uuid.UUID) ID { return NewBatchID(id) },
}

func parseIDParts(str string) (string, uuid.UUID, error) {
	parts := strings.Split(str, "_")
	if len(parts) != 2 {
		return "", uuid.Nil, errors.New("invalid GID structure")
	}
	idPart, err := decodeUUID(parts[1])
	if err != nil {
		return "", uuid.Nil, errors.Wrap(err, "invalid unique id part of GID")
	}
	return parts[0], idPart, nil
}

func ParseID(str string) (ID, error) {
	tagName, uniquePart, err := parseIDParts(str)
	if err != nil {
		return nil, err
	}

	constructor := idConstructorMap[tagName]
	if constructor == nil {
		return nil, errors.Errorf("no known gid for tag %s", tagName)
	}

	return constructor(uniquePart), nil
}

func ParseIDAs(str string, destID interface{}) error {
	id, err := ParseID(str)
	if err != nil {
		return errors.Wrapf(err, "parse ID failed: %s", str)
	}
	return assignTo(id, destID)
}

// RunID identifies one capture generation, used to correlate log lines and
// system-event messages emitted during that run.
type RunID struct {
	baseID
}

func (RunID) GetType() string {
	return RunTag
}

func (id RunID) String() string {
	return String(id)
}

func NewRunID(id uuid.UUID) RunID {
	return RunID{baseID(id)}
}

func GenerateRunID() RunID {
	return NewRunID(uuid.New())
}

func (id RunID) MarshalText() ([]byte, error) {
	return toText(id)
}

func (id *RunID) UnmarshalText(data []byte) error {
	return fromText(id, data)
}

// BatchID identifies one micro-batch of translation jobs processed together
// by the translation worker, used to correlate the worker's per-batch debug
// log lines.
type BatchID struct {
	baseID
}

func (BatchID) GetType() string {
	return BatchTag
}

func (id BatchID) String() string {
	return String(id)
}

func NewBatchID(id uuid.UUID) BatchID {
	return BatchID{baseID(id)}
}

func GenerateBatchID() BatchID {
	return NewBatchID(uuid.New())
}

func (id BatchID) MarshalText() ([]byte, error) {
	return toText(id)
}

func (id *BatchID) UnmarshalText(data []byte) error {
	return fromText(id, data)
}
