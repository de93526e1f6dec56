// Package resource provides the generic CRUD layer shared by every
// VivialConnect resource type. A Kind names the type on the wire, a Resource
// holds the attributes of one remote object and a Client moves resources to
// and from the service through a Requestor.
package resource
