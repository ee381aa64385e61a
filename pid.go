package dsim

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/segmentio/fasthash/fnv1a"
)

// Pid identifies a process. Pids are totally ordered by their numeric value.
type Pid int

var _ fmt.Stringer = Pid(0)

func (p Pid) String() string {
	return fmt.Sprintf("p%d", int(p))
}

// PidHasher hashes Pid keys for use with immutable collections.
type PidHasher struct{}

var _ immutable.Hasher[Pid] = PidHasher{}

func (PidHasher) Hash(key Pid) uint32 {
	return fnv1a.HashUint32(uint32(key))
}

func (PidHasher) Equal(a, b Pid) bool {
	return a == b
}

// ProcessSet is an immutable, duplicate-free set of Pids. The zero value is
// the empty set and is ready to use. All mutating operations return a new
// set, leaving the receiver unchanged.
type ProcessSet struct {
	set *immutable.Map[Pid, struct{}]
}

var _ fmt.Stringer = ProcessSet{}
var _ json.Marshaler = ProcessSet{}
var _ json.Unmarshaler = &ProcessSet{}
var _ gob.GobEncoder = ProcessSet{}
var _ gob.GobDecoder = &ProcessSet{}

// NewProcessSet builds a set containing the given pids.
func NewProcessSet(pids ...Pid) ProcessSet {
	var set ProcessSet
	return set.Add(pids...)
}

func (s ProcessSet) ensureMap() *immutable.Map[Pid, struct{}] {
	if s.set == nil {
		return immutable.NewMap[Pid, struct{}](PidHasher{})
	}
	return s.set
}

// Add returns the union of this set and the given pids.
func (s ProcessSet) Add(pids ...Pid) ProcessSet {
	acc := s.ensureMap()
	for _, pid := range pids {
		acc = acc.Set(pid, struct{}{})
	}
	return ProcessSet{set: acc}
}

// Union returns the union of this set and another.
func (s ProcessSet) Union(other ProcessSet) ProcessSet {
	if s.set == nil {
		return other
	} else if other.set == nil {
		return s
	}
	self := s
	// iterate over the smaller set
	if self.set.Len() < other.set.Len() {
		self, other = other, self
	}
	acc := self.set
	it := other.set.Iterator()
	for !it.Done() {
		pid, _, _ := it.Next()
		acc = acc.Set(pid, struct{}{})
	}
	return ProcessSet{set: acc}
}

func (s ProcessSet) Contains(pid Pid) bool {
	if s.set == nil {
		return false
	}
	_, ok := s.set.Get(pid)
	return ok
}

func (s ProcessSet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

// Sorted returns the members in ascending Pid order.
func (s ProcessSet) Sorted() []Pid {
	if s.set == nil {
		return nil
	}
	pids := make([]Pid, 0, s.set.Len())
	it := s.set.Iterator()
	for !it.Done() {
		pid, _, _ := it.Next()
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

func (s ProcessSet) Equal(other ProcessSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.set == nil {
		return true
	}
	it := s.set.Iterator()
	for !it.Done() {
		pid, _, _ := it.Next()
		if !other.Contains(pid) {
			return false
		}
	}
	return true
}

func (s ProcessSet) String() string {
	var builder strings.Builder
	builder.WriteString("{")
	for i, pid := range s.Sorted() {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(pid.String())
	}
	builder.WriteString("}")
	return builder.String()
}

func (s ProcessSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ProcessSet) UnmarshalJSON(data []byte) error {
	var pids []Pid
	if err := json.Unmarshal(data, &pids); err != nil {
		return err
	}
	*s = NewProcessSet(pids...)
	return nil
}

// GobEncode takes a value receiver so sets reached through interface fields,
// which gob cannot address, still encode.
func (s ProcessSet) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	pids := s.Sorted()
	if err := encoder.Encode(len(pids)); err != nil {
		return nil, err
	}
	for _, pid := range pids {
		if err := encoder.Encode(pid); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (s *ProcessSet) GobDecode(b []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(b))
	var count int
	if err := decoder.Decode(&count); err != nil {
		return err
	}
	builder := immutable.NewMapBuilder[Pid, struct{}](PidHasher{})
	for i := 0; i < count; i++ {
		var pid Pid
		if err := decoder.Decode(&pid); err != nil {
			return err
		}
		builder.Set(pid, struct{}{})
	}
	s.set = builder.Map()
	return nil
}

// Channel is an ordered (sender, receiver) pair. Undirected channels compare,
// order, and hash the same under either orientation.
type Channel struct {
	From     Pid  `json:"from"`
	To       Pid  `json:"to"`
	Directed bool `json:"directed"`
}

var _ fmt.Stringer = Channel{}

// NewChannel builds a directed channel from s to r.
func NewChannel(s, r Pid) Channel {
	return Channel{From: s, To: r, Directed: true}
}

// NewUndirectedChannel builds a channel that ignores orientation.
func NewUndirectedChannel(a, b Pid) Channel {
	return Channel{From: a, To: b, Directed: false}
}

func (c Channel) String() string {
	if c.Directed {
		return fmt.Sprintf("<%d,%d>", int(c.From), int(c.To))
	}
	a, b := c.Normalized()
	return fmt.Sprintf("<%d,%d>", int(a), int(b))
}

// Normalized returns the endpoints with the smaller Pid first.
func (c Channel) Normalized() (Pid, Pid) {
	if c.From <= c.To {
		return c.From, c.To
	}
	return c.To, c.From
}

func (c Channel) Equal(other Channel) bool {
	if c.Directed && other.Directed {
		return c.From == other.From && c.To == other.To
	}
	a1, a2 := c.Normalized()
	b1, b2 := other.Normalized()
	return a1 == b1 && a2 == b2
}

// Less orders channels for rendering; directed channels order by endpoints
// as given, anything else by normalized endpoints.
func (c Channel) Less(other Channel) bool {
	var a1, a2, b1, b2 Pid
	if c.Directed && other.Directed {
		a1, a2 = c.From, c.To
		b1, b2 = other.From, other.To
	} else {
		a1, a2 = c.Normalized()
		b1, b2 = other.Normalized()
	}
	if a1 != b1 {
		return a1 < b1
	}
	return a2 < b2
}

// ChannelHasher hashes Channel keys for use with immutable collections. The
// hash covers the normalized endpoints only, so that undirected channels hash
// consistently with their equality.
type ChannelHasher struct{}

var _ immutable.Hasher[Channel] = ChannelHasher{}

func (ChannelHasher) Hash(key Channel) uint32 {
	a, b := key.Normalized()
	h := fnv1a.Init32
	h = fnv1a.AddUint32(h, uint32(a))
	h = fnv1a.AddUint32(h, uint32(b))
	return h
}

func (ChannelHasher) Equal(a, b Channel) bool {
	return a.Equal(b)
}

// ChannelSet is an immutable, duplicate-free set of Channels. The zero value
// is the empty set.
type ChannelSet struct {
	set *immutable.Map[Channel, struct{}]
}

var _ fmt.Stringer = ChannelSet{}
var _ json.Marshaler = ChannelSet{}
var _ json.Unmarshaler = &ChannelSet{}
var _ gob.GobEncoder = ChannelSet{}
var _ gob.GobDecoder = &ChannelSet{}

// NewChannelSet builds a set containing the given channels.
func NewChannelSet(channels ...Channel) ChannelSet {
	var set ChannelSet
	return set.Add(channels...)
}

func (s ChannelSet) ensureMap() *immutable.Map[Channel, struct{}] {
	if s.set == nil {
		return immutable.NewMap[Channel, struct{}](ChannelHasher{})
	}
	return s.set
}

// Add returns the union of this set and the given channels.
func (s ChannelSet) Add(channels ...Channel) ChannelSet {
	acc := s.ensureMap()
	for _, channel := range channels {
		acc = acc.Set(channel, struct{}{})
	}
	return ChannelSet{set: acc}
}

// Union returns the union of this set and another.
func (s ChannelSet) Union(other ChannelSet) ChannelSet {
	if s.set == nil {
		return other
	} else if other.set == nil {
		return s
	}
	acc := s.set
	it := other.set.Iterator()
	for !it.Done() {
		channel, _, _ := it.Next()
		acc = acc.Set(channel, struct{}{})
	}
	return ChannelSet{set: acc}
}

func (s ChannelSet) Contains(channel Channel) bool {
	if s.set == nil {
		return false
	}
	_, ok := s.set.Get(channel)
	return ok
}

func (s ChannelSet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

// Sorted returns the members ordered by Channel.Less.
func (s ChannelSet) Sorted() []Channel {
	if s.set == nil {
		return nil
	}
	channels := make([]Channel, 0, s.set.Len())
	it := s.set.Iterator()
	for !it.Done() {
		channel, _, _ := it.Next()
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Less(channels[j]) })
	return channels
}

// All reports whether every channel in the set satisfies pred.
func (s ChannelSet) All(pred func(Channel) bool) bool {
	if s.set == nil {
		return true
	}
	it := s.set.Iterator()
	for !it.Done() {
		channel, _, _ := it.Next()
		if !pred(channel) {
			return false
		}
	}
	return true
}

func (s ChannelSet) Equal(other ChannelSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.set == nil {
		return true
	}
	it := s.set.Iterator()
	for !it.Done() {
		channel, _, _ := it.Next()
		if !other.Contains(channel) {
			return false
		}
	}
	return true
}

func (s ChannelSet) String() string {
	var builder strings.Builder
	builder.WriteString("{")
	for i, channel := range s.Sorted() {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString(channel.String())
	}
	builder.WriteString("}")
	return builder.String()
}

func (s ChannelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ChannelSet) UnmarshalJSON(data []byte) error {
	var channels []Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return err
	}
	*s = NewChannelSet(channels...)
	return nil
}

// GobEncode takes a value receiver so sets reached through interface fields,
// which gob cannot address, still encode.
func (s ChannelSet) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	channels := s.Sorted()
	if err := encoder.Encode(len(channels)); err != nil {
		return nil, err
	}
	for _, channel := range channels {
		if err := encoder.Encode(channel); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (s *ChannelSet) GobDecode(b []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(b))
	var count int
	if err := decoder.Decode(&count); err != nil {
		return err
	}
	builder := immutable.NewMapBuilder[Channel, struct{}](ChannelHasher{})
	for i := 0; i < count; i++ {
		var channel Channel
		if err := decoder.Decode(&channel); err != nil {
			return err
		}
		builder.Set(channel, struct{}{})
	}
	s.set = builder.Map()
	return nil
}
