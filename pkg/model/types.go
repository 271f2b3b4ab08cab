package model

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v2"
)

// Info describes a commit: when, by whom and why
type Info struct {
	Date    int64  `json:"date" yaml:"date"` // unix seconds
	Author  string `json:"author" yaml:"author"`
	Message string `json:"message" yaml:"message"`
	_       struct{}
}

// NewInfo builds commit info stamped with the current time
func NewInfo(author, message string) Info {
	return Info{
		Date:    time.Now().UTC().Unix(),
		Author:  author,
		Message: message,
	}
}

// Time renders the date of the commit
func (i Info) Time() time.Time {
	return time.Unix(i.Date, 0).UTC()
}

// Equal tells if two infos are the same
func (i Info) Equal(o Info) bool {
	return i.Date == o.Date && i.Author == o.Author && i.Message == o.Message
}

func (i Info) String() string {
	b, err := yaml.Marshal(struct {
		Date    string `yaml:"date"`
		Author  string `yaml:"author"`
		Message string `yaml:"message"`
	}{
		Date:    i.Time().Format(time.RFC3339),
		Author:  i.Author,
		Message: i.Message,
	})
	if err != nil {
		return fmt.Sprintf("%s %s %s", i.Time().Format(time.RFC3339), i.Author, i.Message)
	}
	return string(b)
}

// Metadata attached to a contents entry in a tree, such as a file mode.
//
// Metadata is opaque to the store: it is only compared and merged.
type Metadata string

// DefaultMetadata is the metadata of contents set without explicit metadata
const DefaultMetadata Metadata = ""

// Kind of a tree entry
type Kind uint8

const (
	// KindContents is an entry pointing to contents
	KindContents Kind = iota + 1

	// KindNode is an entry pointing to a subtree
	KindNode
)

func (k Kind) String() string {
	switch k {
	case KindContents:
		return "contents"
	case KindNode:
		return "node"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalJSON implements json.Marshaller
func (k Kind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindContents, KindNode:
		return jsoniter.Marshal(k.String())
	default:
		return nil, ErrInvalidObject.WrapMessage("unknown entry kind %d", uint8(k))
	}
}

// UnmarshalJSON implements json.Unmarshaller
func (k *Kind) UnmarshalJSON(data []byte) error {
	var str string
	if err := jsoniter.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "contents":
		*k = KindContents
	case "node":
		*k = KindNode
	default:
		return ErrInvalidObject.WrapMessage("unknown entry kind %q", str)
	}
	return nil
}
