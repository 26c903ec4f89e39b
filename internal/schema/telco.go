package schema

// Canonical column names shared by the staging, feature and dataset stages.
const (
	ColCustomerID       = "customer_id"
	ColGender           = "gender"
	ColSeniorCitizen    = "senior_citizen"
	ColPartner          = "partner"
	ColDependents       = "dependents"
	ColTenure           = "tenure"
	ColPhoneService     = "phone_service"
	ColMultipleLines    = "multiple_lines"
	ColInternetService  = "internet_service"
	ColOnlineSecurity   = "online_security"
	ColOnlineBackup     = "online_backup"
	ColDeviceProtection = "device_protection"
	ColTechSupport      = "tech_support"
	ColStreamingTV      = "streaming_tv"
	ColStreamingMovies  = "streaming_movies"
	ColContract         = "contract"
	ColPaperlessBilling = "paperless_billing"
	ColPaymentMethod    = "payment_method"
	ColMonthlyCharges   = "monthly_charges"
	ColTotalCharges     = "total_charges"
	ColChurn            = "churn"
)

// Canonical tokens written by the cleaning stage.
const (
	TokenYes        = "Yes"
	TokenNo         = "No"
	TokenNoPhone    = "NoPhone"
	TokenNoInternet = "NoInternet"
)

// InternetAddonColumns are the add-on services that require internet service.
var InternetAddonColumns = []string{
	ColOnlineSecurity,
	ColOnlineBackup,
	ColDeviceProtection,
	ColTechSupport,
	ColStreamingTV,
	ColStreamingMovies,
}

// Telco is the registry for the telco customer churn extract, version 1.
var Telco = MustRegistry(
	Field("customerID", ColCustomerID, TypeString),
	Field("gender", ColGender, TypeString),
	Field("SeniorCitizen", ColSeniorCitizen, TypeBoolean),
	Field("Partner", ColPartner, TypeBoolean),
	Field("Dependents", ColDependents, TypeBoolean),
	Field("tenure", ColTenure, TypeInteger),
	Field("PhoneService", ColPhoneService, TypeString),
	Field("MultipleLines", ColMultipleLines, TypeString),
	Field("InternetService", ColInternetService, TypeString),
	Field("OnlineSecurity", ColOnlineSecurity, TypeString),
	Field("OnlineBackup", ColOnlineBackup, TypeString),
	Field("DeviceProtection", ColDeviceProtection, TypeString),
	Field("TechSupport", ColTechSupport, TypeString),
	Field("StreamingTV", ColStreamingTV, TypeString),
	Field("StreamingMovies", ColStreamingMovies, TypeString),
	Field("Contract", ColContract, TypeString),
	Field("PaperlessBilling", ColPaperlessBilling, TypeBoolean),
	Field("PaymentMethod", ColPaymentMethod, TypeString),
	Field("MonthlyCharges", ColMonthlyCharges, TypeFloat),
	Field("TotalCharges", ColTotalCharges, TypeFloat),
	Field("Churn", ColChurn, TypeBoolean),
)
