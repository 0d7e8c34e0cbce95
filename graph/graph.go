// Package graph provides the mutable node graph edited by the user, the
// validation engine that decides whether a graph is well-formed, and the
// serializable snapshot form used for persistence.
//
// The Graph is the single mutable entity in RuleForge. Every edit
// operation either fully succeeds or fully fails with the graph left in
// its pre-call state; no edit is ever partially applied.
package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ruleforge/ruleforge/core"
	"github.com/ruleforge/ruleforge/registry"
)

// Graph edit errors
var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrUnknownSlot        = errors.New("unknown input slot")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrSlotOccupied       = errors.New("slot already has an incoming connection")
	ErrSlotConnected      = errors.New("slot is connected")
	ErrNoOutput           = errors.New("source node has no output port")
	ErrNotAnEvent         = errors.New("node is not an event")
	ErrWrongCategory      = errors.New("wrong node category")
	ErrAlreadyAttached    = errors.New("node is already attached to an event")
	ErrNotAttached        = errors.New("node is not attached to this event")
)

// Connection is a directed edge from a value node's output port to
// another node's input slot.
type Connection struct {
	id     string
	source string // producing node ID
	sink   string // consuming node ID
	slot   string // input slot name on the sink
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Source returns the producing node's ID.
func (c *Connection) Source() string { return c.source }

// Sink returns the consuming node's ID.
func (c *Connection) Sink() string { return c.sink }

// Slot returns the input slot name on the sink node.
func (c *Connection) Slot() string { return c.slot }

// slot tracks the state of one input slot: at most one inbound
// connection, and the literal that applies when no connection is present.
// The literal is kept while a connection shadows it so Disconnect can
// restore the slot's prior state.
type slot struct {
	literal *core.Literal
	conn    string
}

// NodeInstance is a live node placed in a graph. It references its shared
// immutable definition; all per-instance state lives in the slots and,
// for event nodes, the ordered attachment lists.
type NodeInstance struct {
	id    string
	label string
	def   *registry.NodeDefinition
	slots map[string]*slot

	// Event nodes only: ordered rule attachments. Order is the user's
	// placement order, which the emitter preserves verbatim.
	conditions []string
	actions    []string

	// Condition/action nodes only: the owning event ("" if unattached).
	event string
}

// ID returns the instance's unique identifier.
func (n *NodeInstance) ID() string { return n.id }

// Definition returns the shared node definition.
func (n *NodeInstance) Definition() *registry.NodeDefinition { return n.def }

// Label returns the user-visible label. For event nodes this becomes the
// emitted rule name. Defaults to the definition's display name.
func (n *NodeInstance) Label() string { return n.label }

// Literal returns the literal currently visible on the slot, or nil when
// the slot is unset. A slot shadowed by a connection reports nil.
func (n *NodeInstance) Literal(slotName string) *core.Literal {
	s, ok := n.slots[slotName]
	if !ok || s.conn != "" {
		return nil
	}
	return s.literal
}

// Incoming returns the ID of the connection feeding the slot, or "".
func (n *NodeInstance) Incoming(slotName string) string {
	s, ok := n.slots[slotName]
	if !ok {
		return ""
	}
	return s.conn
}

// Conditions returns the ordered condition attachments of an event node.
func (n *NodeInstance) Conditions() []string {
	return append([]string(nil), n.conditions...)
}

// Actions returns the ordered action attachments of an event node.
func (n *NodeInstance) Actions() []string {
	return append([]string(nil), n.actions...)
}

// AttachedTo returns the owning event ID of a condition or action node,
// or "" when unattached.
func (n *NodeInstance) AttachedTo() string { return n.event }

// Graph is the full collection of node instances and connections for one
// script. It is not safe for concurrent mutation; edits and compiles run
// on one logical thread of control.
type Graph struct {
	nodes     map[string]*NodeInstance
	nodeOrder []string // preserves insertion order
	conns     map[string]*Connection
	connOrder []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*NodeInstance),
		conns: make(map[string]*Connection),
	}
}

// Nodes returns all node instances in insertion order.
func (g *Graph) Nodes() []*NodeInstance {
	nodes := make([]*NodeInstance, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeByID retrieves a node instance by its ID.
func (g *Graph) NodeByID(id string) (*NodeInstance, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Connections returns all connections in creation order.
func (g *Graph) Connections() []*Connection {
	conns := make([]*Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		conns = append(conns, g.conns[id])
	}
	return conns
}

// ConnectionByID retrieves a connection by its ID.
func (g *Graph) ConnectionByID(id string) (*Connection, bool) {
	c, ok := g.conns[id]
	return c, ok
}

// Events returns the event nodes in insertion order. Rule order in the
// emitted script follows this order.
func (g *Graph) Events() []*NodeInstance {
	var events []*NodeInstance
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.def.Category == core.CategoryEvent {
			events = append(events, n)
		}
	}
	return events
}

// AddNode instantiates a definition in the graph. Every input slot starts
// at the definition's declared default literal, or unset if none. Always
// succeeds.
func (g *Graph) AddNode(def *registry.NodeDefinition) *NodeInstance {
	return g.addNode(def, uuid.NewString())
}

func (g *Graph) addNode(def *registry.NodeDefinition, id string) *NodeInstance {
	n := &NodeInstance{
		id:    id,
		label: def.Name,
		def:   def,
		slots: make(map[string]*slot, len(def.Params)),
	}
	for _, p := range def.Params {
		s := &slot{}
		if p.Default != nil {
			lit := *p.Default
			s.literal = &lit
		}
		n.slots[p.Name] = s
	}
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	return n
}

// SetLabel renames a node instance. For event nodes the label is the
// emitted rule name.
func (g *Graph) SetLabel(id, label string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.label = label
	return nil
}

// RemoveNode removes the instance and every connection touching any of
// its ports, and detaches it from any rule. Removing an unknown ID is a
// no-op, not an error: deletion must be safe even when the UI races a
// previous removal.
func (g *Graph) RemoveNode(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}

	// Sever all touching connections. Sinks on surviving nodes revert to
	// their prior literal state.
	for _, connID := range append([]string(nil), g.connOrder...) {
		c := g.conns[connID]
		if c.source == id || c.sink == id {
			g.removeConnection(connID)
		}
	}

	switch n.def.Category {
	case core.CategoryEvent:
		for _, attached := range n.conditions {
			if m, ok := g.nodes[attached]; ok {
				m.event = ""
			}
		}
		for _, attached := range n.actions {
			if m, ok := g.nodes[attached]; ok {
				m.event = ""
			}
		}
	case core.CategoryCondition, core.CategoryAction:
		if n.event != "" {
			if ev, ok := g.nodes[n.event]; ok {
				ev.conditions = removeID(ev.conditions, id)
				ev.actions = removeID(ev.actions, id)
			}
		}
	}

	delete(g.nodes, id)
	g.nodeOrder = removeID(g.nodeOrder, id)
}

// Connect wires the source value node's output into the sink's input
// slot. It rejects occupied slots and incompatible types; it does not
// reject cycles, which are a whole-graph property checked by Validate.
func (g *Graph) Connect(sourceID, sinkID, slotName string) (*Connection, error) {
	src, ok := g.nodes[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrNodeNotFound, sourceID)
	}
	sink, ok := g.nodes[sinkID]
	if !ok {
		return nil, fmt.Errorf("%w: sink %s", ErrNodeNotFound, sinkID)
	}
	if src.def.Category != core.CategoryValue {
		return nil, fmt.Errorf("%w: %s is a %s node", ErrNoOutput, sourceID, src.def.Category)
	}
	s, ok := sink.slots[slotName]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownSlot, slotName, sinkID)
	}
	if s.conn != "" {
		return nil, fmt.Errorf("%w: %q on %s", ErrSlotOccupied, slotName, sinkID)
	}
	spec, _ := sink.def.Param(slotName)
	if !core.Compatible(src.def.Output, spec.Type) {
		return nil, fmt.Errorf("%w: %s does not fit %s slot %q", ErrTypeMismatch, src.def.Output, spec.Type, slotName)
	}

	c := &Connection{
		id:     uuid.NewString(),
		source: sourceID,
		sink:   sinkID,
		slot:   slotName,
	}
	g.conns[c.id] = c
	g.connOrder = append(g.connOrder, c.id)
	s.conn = c.id
	return c, nil
}

// Disconnect removes exactly one connection. The sink slot reverts to the
// literal it held before the connection (or its default, or unset).
func (g *Graph) Disconnect(connID string) error {
	if _, ok := g.conns[connID]; !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	g.removeConnection(connID)
	return nil
}

func (g *Graph) removeConnection(connID string) {
	c := g.conns[connID]
	if sink, ok := g.nodes[c.sink]; ok {
		if s, ok := sink.slots[c.slot]; ok && s.conn == connID {
			s.conn = ""
		}
	}
	delete(g.conns, connID)
	g.connOrder = removeID(g.connOrder, connID)
}

// SetLiteral sets the slot's literal value. Only legal while the slot has
// no incoming connection.
func (g *Graph) SetLiteral(id, slotName string, lit core.Literal) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	s, ok := n.slots[slotName]
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrUnknownSlot, slotName, id)
	}
	if s.conn != "" {
		return fmt.Errorf("%w: %q on %s", ErrSlotConnected, slotName, id)
	}
	spec, _ := n.def.Param(slotName)
	if !core.Compatible(lit.Type, spec.Type) {
		return fmt.Errorf("%w: %s literal does not fit %s slot %q", ErrTypeMismatch, lit.Type, spec.Type, slotName)
	}
	s.literal = &lit
	return nil
}

// ClearLiteral unsets the slot, returning it to the unset marker. Only
// legal while the slot has no incoming connection.
func (g *Graph) ClearLiteral(id, slotName string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	s, ok := n.slots[slotName]
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrUnknownSlot, slotName, id)
	}
	if s.conn != "" {
		return fmt.Errorf("%w: %q on %s", ErrSlotConnected, slotName, id)
	}
	s.literal = nil
	return nil
}

// AttachCondition appends a condition node to the event's ordered
// condition list. A condition belongs to at most one event.
func (g *Graph) AttachCondition(eventID, nodeID string) error {
	return g.attach(eventID, nodeID, core.CategoryCondition)
}

// AttachAction appends an action node to the event's ordered action
// list. Ordering among actions is exactly placement order; it is never
// inferred from data dependencies.
func (g *Graph) AttachAction(eventID, nodeID string) error {
	return g.attach(eventID, nodeID, core.CategoryAction)
}

func (g *Graph) attach(eventID, nodeID string, want core.Category) error {
	ev, ok := g.nodes[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, eventID)
	}
	if ev.def.Category != core.CategoryEvent {
		return fmt.Errorf("%w: %s", ErrNotAnEvent, eventID)
	}
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if n.def.Category != want {
		return fmt.Errorf("%w: %s is a %s node, want %s", ErrWrongCategory, nodeID, n.def.Category, want)
	}
	if n.event != "" {
		return fmt.Errorf("%w: %s is attached to %s", ErrAlreadyAttached, nodeID, n.event)
	}

	if want == core.CategoryCondition {
		ev.conditions = append(ev.conditions, nodeID)
	} else {
		ev.actions = append(ev.actions, nodeID)
	}
	n.event = eventID
	return nil
}

// Detach removes a condition or action node from its event's attachment
// list, leaving the node in the graph.
func (g *Graph) Detach(eventID, nodeID string) error {
	ev, ok := g.nodes[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, eventID)
	}
	n, ok := g.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if n.event != eventID {
		return fmt.Errorf("%w: %s", ErrNotAttached, nodeID)
	}
	ev.conditions = removeID(ev.conditions, nodeID)
	ev.actions = removeID(ev.actions, nodeID)
	n.event = ""
	return nil
}

// MoveAction repositions an attached action within its event's ordered
// list. The index is clamped to the list bounds.
func (g *Graph) MoveAction(eventID, nodeID string, index int) error {
	ev, ok := g.nodes[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, eventID)
	}
	pos := indexOf(ev.actions, nodeID)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrNotAttached, nodeID)
	}
	ev.actions = removeID(ev.actions, nodeID)
	if index < 0 {
		index = 0
	}
	if index > len(ev.actions) {
		index = len(ev.actions)
	}
	ev.actions = append(ev.actions[:index], append([]string{nodeID}, ev.actions[index:]...)...)
	return nil
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
