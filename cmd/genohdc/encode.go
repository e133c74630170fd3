package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/vcf"
)

type dnaOutput struct {
	Index          int                     `json:"index"`
	Vector         hypervector.Hypervector `json:"vector"`
	KmerCount      int                     `json:"kmer_count"`
	KmerLength     int                     `json:"kmer_length"`
	SequenceLength int                     `json:"sequence_length"`
	Skipped        int                     `json:"skipped"`
}

type dnaBatchOutput struct {
	Items  []dnaOutput `json:"items"`
	Failed []string    `json:"failed,omitempty"`
}

type vectorOutput struct {
	Vector hypervector.Hypervector `json:"vector"`
	Count  int                     `json:"count"`
}

type pgxOutput struct {
	Vector       hypervector.Hypervector   `json:"vector"`
	Diplotypes   []encoder.Diplotype       `json:"diplotypes"`
	Summary      []string                  `json:"summary"`
	Interactions []encoder.DrugInteraction `json:"interactions,omitempty"`
}

type pgxAncestryOutput struct {
	Profile      encoder.AncestryProfile       `json:"profile"`
	Summary      []string                      `json:"summary"`
	Interactions []encoder.AncestryInteraction `json:"interactions,omitempty"`
	Dosing       []encoder.DosingGuidance      `json:"dosing,omitempty"`
}

type vcfOutput struct {
	Vector       hypervector.Hypervector `json:"vector"`
	Sample       string                  `json:"sample"`
	VariantCount int                     `json:"variant_count"`
	Skipped      int                     `json:"skipped"`
	Chromosomes  []string                `json:"chromosomes"`
	Stats        vcf.Stats               `json:"stats"`
}

func newEncodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode genomic data into hypervectors",
	}
	cmd.AddCommand(
		newEncodeDNACmd(a),
		newEncodeSNPCmd(a),
		newEncodeHLACmd(a),
		newEncodePGxCmd(a),
		newEncodeVCFCmd(a),
	)
	return cmd
}

func newEncodeDNACmd(a *app) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "dna SEQUENCE...",
		Short: "Encode DNA sequences with sliding k-mers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("k") {
				k = a.cfg.Encoding.K
			}

			if len(args) == 1 {
				enc, err := encoder.NewDNAEncoder(a.engine.Codebook(), k,
					encoder.WithPositionMode(a.cfg.PositionMode()),
					encoder.WithPositionWindow(a.cfg.Encoding.PositionWindow),
				)
				if err != nil {
					return err
				}
				res, err := enc.Encode(args[0])
				if err != nil {
					return err
				}
				return a.print(cmd, newDNAOutput(0, res))
			}

			bc := a.cfg.Batch
			bc.K = k
			res, err := a.engine.EncodeDNABatch(cmd.Context(), args, bc)
			if res == nil {
				return err
			}
			out := dnaBatchOutput{Items: make([]dnaOutput, len(res.Items))}
			for i, it := range res.Items {
				out.Items[i] = newDNAOutput(res.Indices[i], it)
			}
			for _, f := range res.Failed {
				out.Failed = append(out.Failed, fmt.Sprintf("%d: %v", f.Index, f.Err))
			}
			if perr := a.print(cmd, out); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 6, "k-mer length")
	return cmd
}

func newDNAOutput(i int, res encoder.EncodedSequence) dnaOutput {
	return dnaOutput{
		Index:          i,
		Vector:         res.Vector,
		KmerCount:      res.KmerCount,
		KmerLength:     res.KmerLength,
		SequenceLength: res.SequenceLength,
		Skipped:        res.Skipped,
	}
}

func newEncodeSNPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snp RSID:ALLELE...",
		Short: "Encode a SNP panel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snps := make([]encoder.SNP, len(args))
			for i, s := range args {
				snp, err := encoder.ParseSNP(s)
				if err != nil {
					return err
				}
				snps[i] = snp
			}
			v, err := encoder.NewSNPEncoder(a.engine.Codebook()).EncodePanel(snps)
			if err != nil {
				return err
			}
			return a.print(cmd, vectorOutput{Vector: v, Count: len(snps)})
		},
	}
}

func newEncodeHLACmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hla ALLELE...",
		Short: "Encode an HLA typing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := encoder.NewHLAEncoder(a.engine.Codebook()).EncodeTyping(args)
			if err != nil {
				return err
			}
			return a.print(cmd, vectorOutput{Vector: v, Count: len(args)})
		},
	}
}

func newEncodePGxCmd(a *app) *cobra.Command {
	var (
		drugs    []string
		ancestry string
	)

	cmd := &cobra.Command{
		Use:   "pgx GENE:*A/*B...",
		Short: "Encode a pharmacogenomic profile",
		Long: `Encode a pharmacogenomic profile from gene diplotypes such as
"CYP2D6:*1/*4". With --drug the predicted interaction for each drug is
reported as well. With --ancestry the diplotypes carry population
frequencies and phenotype priors, and each drug gets dosing guidance.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]encoder.DiplotypeInput, len(args))
			for i, s := range args {
				d, err := encoder.ParseDiplotype(s)
				if err != nil {
					return err
				}
				inputs[i] = d
			}

			enc := encoder.NewPGxEncoder(a.engine.Codebook(), encoder.WithStrictAlleles(a.cfg.Encoding.StrictAlleles))
			if cmd.Flags().Changed("ancestry") {
				anc, err := encoder.ParseAncestry(ancestry)
				if err != nil {
					return err
				}
				return a.encodePGxWithAncestry(cmd, enc, inputs, anc, drugs)
			}

			profile, err := enc.EncodeProfile(inputs)
			if err != nil {
				return err
			}

			out := pgxOutput{Vector: profile.Vector, Diplotypes: profile.Diplotypes, Summary: profile.Summary()}
			for _, drug := range drugs {
				in, err := enc.PredictDrugInteraction(profile, drug)
				if err != nil {
					return err
				}
				out.Interactions = append(out.Interactions, in)
			}
			return a.print(cmd, out)
		},
	}
	cmd.Flags().StringSliceVar(&drugs, "drug", nil, "drugs to predict interactions for")
	cmd.Flags().StringVar(&ancestry, "ancestry", "", "patient ancestry (e.g. european, east_asian, african)")
	return cmd
}

func (a *app) encodePGxWithAncestry(cmd *cobra.Command, enc *encoder.PGxEncoder, inputs []encoder.DiplotypeInput, anc encoder.Ancestry, drugs []string) error {
	profile, err := enc.EncodeProfileWithAncestry(inputs, anc)
	if err != nil {
		return err
	}

	out := pgxAncestryOutput{Profile: profile, Summary: profile.Profile().Summary()}
	for _, drug := range drugs {
		in, err := enc.PredictDrugInteractionWithAncestry(profile, drug)
		if err != nil {
			return err
		}
		g, err := enc.DosingGuidance(profile, drug)
		if err != nil {
			return err
		}
		out.Interactions = append(out.Interactions, in)
		out.Dosing = append(out.Dosing, g)
	}
	return a.print(cmd, out)
}

func newEncodeVCFCmd(a *app) *cobra.Command {
	var (
		sample     string
		region     string
		positional bool
		panel      []string
		lenient    bool
	)

	cmd := &cobra.Command{
		Use:   "vcf FILE",
		Short: "Encode the called variants of one VCF sample",
		Long: `Encode the called variants of one VCF sample. FILE may be plain or
gzip/BGZF compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if positional && len(panel) > 0 {
				return errors.New("--positional and --panel are mutually exclusive")
			}

			opts := []vcf.Option{vcf.WithLogger(a.logger.Logger)}
			if sample != "" {
				opts = append(opts, vcf.WithSample(sample))
			}
			if region != "" {
				r, err := vcf.ParseRegion(region)
				if err != nil {
					return err
				}
				opts = append(opts, vcf.WithRegion(r))
			}
			if lenient || a.cfg.Encoding.LenientVCF {
				opts = append(opts, vcf.WithLenient())
			}

			f, err := vcf.Open(args[0], opts...)
			if err != nil {
				return err
			}
			defer f.Close()

			variants, err := f.ReadAll(cmd.Context())
			if err != nil {
				return err
			}

			enc := vcf.NewVariantEncoder(a.engine.Codebook(), vcf.WithPositionWindow(a.cfg.Encoding.PositionWindow))
			var res vcf.Encoded
			switch {
			case positional:
				res, err = enc.EncodePositional(variants)
			case len(panel) > 0:
				res, err = enc.EncodePanel(variants, panel)
			default:
				res, err = enc.Encode(variants)
			}
			if err != nil {
				return err
			}

			return a.print(cmd, vcfOutput{
				Vector:       res.Vector,
				Sample:       f.Sample(),
				VariantCount: res.VariantCount,
				Skipped:      res.Skipped,
				Chromosomes:  res.Chromosomes,
				Stats:        f.Stats(),
			})
		},
	}
	cmd.Flags().StringVar(&sample, "sample", "", "sample column (default: first sample)")
	cmd.Flags().StringVar(&region, "region", "", "restrict to CHROM[:START[-END]]")
	cmd.Flags().BoolVar(&positional, "positional", false, "bind each variant to its position")
	cmd.Flags().StringSliceVar(&panel, "panel", nil, "encode only these rsIDs")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip malformed records")
	return cmd
}
