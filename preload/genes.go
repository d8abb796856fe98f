package preload

// Programmes returns curated gene programmes designed to form distinct
// expression clusters.
// Programmes: cell cycle, hypoxia, EMT, immune, epithelial, interferon,
// stress, glycolysis.
func Programmes() [][]string {
	return [][]string{
		// Cell cycle
		{"MKI67", "TOP2A", "CDK1", "CCNB1", "BUB1", "AURKA", "PLK1", "CENPF"},

		// Hypoxia
		{"VEGFA", "CA9", "SLC2A1", "PGK1", "LDHA", "ENO1", "ADM", "NDRG1"},

		// EMT
		{"VIM", "SNAI2", "ZEB1", "TWIST1", "FN1", "CDH2", "COL1A1", "SPARC"},

		// Immune
		{"PTPRC", "CD74", "HLA-DRA", "CD3E", "CD8A", "LYZ", "CD68", "CXCL10"},

		// Epithelial
		{"EPCAM", "KRT8", "KRT18", "KRT19", "CDH1", "CLDN4", "ELF3", "MUC1"},

		// Interferon
		{"ISG15", "IFI6", "IFIT1", "IFIT3", "MX1", "OAS1", "STAT1", "IRF7"},

		// Stress
		{"FOS", "JUN", "EGR1", "HSPA1A", "HSPA1B", "DNAJB1", "ATF3", "IER2"},

		// Glycolysis
		{"ALDOA", "GAPDH", "PKM", "TPI1", "PGAM1", "MDH2", "IDH1", "FASN"},
	}
}

// Genes returns every programme gene in programme order.
func Genes() []string {
	var genes []string
	for _, programme := range Programmes() {
		genes = append(genes, programme...)
	}
	return genes
}
