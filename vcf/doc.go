// Package vcf reads Variant Call Format text and encodes variant sets as
// hypervectors.
//
// A Reader streams a VCF line by line: "##" meta lines, one "#CHROM"
// column header and tab-separated data lines with at least eight columns.
// The genotype of one sample is taken from the GT field named in FORMAT.
// In strict mode (the default) a malformed data line stops the read with
// *ErrFormat, *ErrInvalidRegion or *ErrInvalidGenotype. In lenient mode such
// lines are counted in Stats and skipped.
//
// Open reads from a file path or "-" for stdin and transparently
// decompresses gzip and bgzip input.
//
// A VariantEncoder maps each non-missing variant to the item vector of
// "chrom:pos:ref:alt1,alt2:code" and bundles them:
//
//	r, err := vcf.Open("sample.vcf.gz")
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	variants, err := r.ReadAll(ctx)
//	if err != nil {
//		return err
//	}
//
//	enc := vcf.NewVariantEncoder(cb)
//	out, err := enc.Encode(variants)
package vcf
