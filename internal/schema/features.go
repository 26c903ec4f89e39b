package schema

// Derived feature columns.
const (
	ColIsSenior           = "is_senior"
	ColHasPartner         = "has_partner"
	ColHasDependents      = "has_dependents"
	ColIsMonthToMonth     = "is_month_to_month"
	ColContractType       = "contract_type"
	ColHasPhoneService    = "has_phone_service"
	ColHasMultipleLines   = "has_multiple_lines"
	ColHasInternetService = "has_internet_service"
	ColNumInternetAddons  = "num_internet_addons"
	ColTenureBucket       = "tenure_bucket"
	ColAvgMonthlyCharges  = "avg_monthly_charges"
)

// Tenure bucket labels, in band order.
const (
	BucketNew    = "new"
	BucketEarly  = "early"
	BucketStable = "stable"
	BucketLoyal  = "loyal"
)

// FeatureColumns is the column order of the merged feature table.
var FeatureColumns = []string{
	ColCustomerID,
	ColIsSenior,
	ColHasPartner,
	ColHasDependents,
	ColIsMonthToMonth,
	ColContractType,
	ColHasPhoneService,
	ColHasMultipleLines,
	ColHasInternetService,
	ColNumInternetAddons,
	ColTenure,
	ColTenureBucket,
	ColMonthlyCharges,
	ColTotalCharges,
	ColAvgMonthlyCharges,
}

// CategoricalFeatures are the string-valued feature columns.
var CategoricalFeatures = []string{ColContractType, ColTenureBucket}
