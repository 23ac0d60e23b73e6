// Package analyzer turns the patch-function sections of a patch object into
// descriptors the hotpatch assembler can consume.
//
// # Naming Grammar
//
// The patch build macros place every patch function in its own code section
// and encode the patch metadata in the section name:
//
//	.text.hotpatch_function_<name>_hotpatch_offset_<hex>_hotpatch_type_<redirect|replacement>_hotpatch_return_offset_<hex>_hotpatch_end
//
// ParseHeader extracts each field between its two delimiter tokens. A field
// whose delimiters are missing stays unset. Extra functions built without
// metadata are still discovered; their type cannot be classified.
//
// # Descriptors
//
// For every section the Analyzer:
//
//   - looks up the function in firmware and clears its Thumb bit
//   - classifies the section's relocations as address, data or call
//     references and resolves their names against firmware
//   - collects the branch-back, external-call and original-code markers
//     defined in the section
//   - snapshots 8 bytes of firmware at function address + patch offset
//   - captures the section's code bytes and its return-fail relocation
//
// A function that cannot be resolved is skipped and reported as a
// *FunctionError; the others are still returned:
//
//	a := analyzer.New(patch, firmware, analyzer.DefaultMarkers())
//	res, err := a.Analyze()
//	if err != nil {
//	    return err // no patch functions at all
//	}
//	for _, fe := range res.Failures {
//	    fmt.Println("skipped:", fe)
//	}
package analyzer
