// Package metakit builds a navigable, queryable semantic model over the raw
// structural descriptors a managed runtime exposes for compiled types and
// members. It answers relational questions (does member A override or
// implement member B, is type T a legal substitution for parameter P, is
// member M a normalized view of an extension member declared elsewhere)
// correctly in the presence of multiple interface inheritance, generic
// variance, explicit interface implementation and extension members.
package metakit
