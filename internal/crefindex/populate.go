package crefindex

import (
	"fmt"

	"github.com/kampute/metakit"
)

// Populate indexes every assembly of a repository: one assembly row and one
// entry per declared type and member. Assemblies already present are
// replaced wholesale.
func Populate(x *Index, repo *metakit.Repository) (int64, error) {
	var total int64
	for _, asm := range repo.Assemblies() {
		if _, err := x.DeleteAssembly(asm.Name); err != nil {
			return total, err
		}
		asmID, err := x.InsertAssembly(asm.Name, asm.Version)
		if err != nil {
			return total, err
		}
		types, err := repo.AssemblyTypes(asm)
		if err != nil {
			return total, fmt.Errorf("types of %s: %w", asm.Name, err)
		}
		var entries []*Entry
		for _, t := range types {
			entries = append(entries, &Entry{
				Cref:      "T:" + t.FullName(),
				Kind:      t.Kind().String(),
				Name:      t.Name(),
				Signature: t.Signature(),
			})
			mp, ok := t.(metakit.MemberProvider)
			if !ok {
				continue
			}
			for _, m := range mp.Members() {
				entries = append(entries, &Entry{
					Cref:      m.Cref(),
					Kind:      m.Kind().String(),
					Name:      m.Name(),
					Declaring: t.FullName(),
				})
			}
		}
		if err := x.InsertEntries(asmID, entries); err != nil {
			return total, fmt.Errorf("index %s: %w", asm.Name, err)
		}
		total += int64(len(entries))
	}
	return total, nil
}
