package db

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// DateLayout is the wire and storage format of BirthDate.
const DateLayout = "2006-01-02"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Person struct {
	ID        uuid.UUID
	Nickname  string
	Name      string
	BirthDate time.Time
	// Stack is nil when the person has no stack, which is distinct from empty.
	Stack []string
}

// MarshalJSON writes {id, nickname, name, birth_date, stack} in that order.
func (p Person) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	stream.WriteObjectField("id")
	stream.WriteString(p.ID.String())
	stream.WriteMore()
	stream.WriteObjectField("nickname")
	stream.WriteString(p.Nickname)
	stream.WriteMore()
	stream.WriteObjectField("name")
	stream.WriteString(p.Name)
	stream.WriteMore()
	stream.WriteObjectField("birth_date")
	stream.WriteString(p.BirthDate.Format(DateLayout))
	stream.WriteMore()
	stream.WriteObjectField("stack")
	if p.Stack == nil {
		stream.WriteNil()
	} else {
		stream.WriteArrayStart()
		for i, tag := range p.Stack {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteString(tag)
		}
		stream.WriteArrayEnd()
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}

	// the stream buffer goes back to the pool
	return append([]byte(nil), stream.Buffer()...), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Person) UnmarshalJSON(data []byte) error {
	iter := json.BorrowIterator(data)
	defer json.ReturnIterator(iter)

	var decoded Person
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "id":
			id, err := uuid.Parse(iter.ReadString())
			if err != nil {
				return fmt.Errorf("person id: %w", err)
			}
			decoded.ID = id
		case "nickname":
			decoded.Nickname = iter.ReadString()
		case "name":
			decoded.Name = iter.ReadString()
		case "birth_date":
			date, err := time.Parse(DateLayout, iter.ReadString())
			if err != nil {
				return fmt.Errorf("person birth_date: %w", err)
			}
			decoded.BirthDate = date
		case "stack":
			if iter.ReadNil() {
				decoded.Stack = nil
				break
			}
			decoded.Stack = []string{}
			for iter.ReadArray() {
				decoded.Stack = append(decoded.Stack, iter.ReadString())
			}
		default:
			iter.Skip()
		}

		if iter.Error != nil {
			break
		}
	}

	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return fmt.Errorf("person: %w", iter.Error)
	}

	*p = decoded
	return nil
}

// searchable is the lower-cased text covered by the trigram index.
func (p Person) searchable() string {
	parts := append([]string{p.Nickname, p.Name}, p.Stack...)
	return strings.ToLower(strings.Join(parts, " "))
}
