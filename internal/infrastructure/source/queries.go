package source

// PartitionPrefix префикс схем заданий верификации
const PartitionPrefix = "job_verifsassuser_"

// '_' экранирован, иначе LIKE принимает любой символ
const discoverPartitionsQuery = `SHOW DATABASES LIKE 'job\_verifsassuser\_%'`

// biasesQuery калибровки радаров по действию 2.
// Значения возвращаются как есть: NULL и коэффициент дальности
// обрабатываются при нормализации.
const biasesQuery = `
	SELECT
		d.DS_NAME,
		b.RADAR_MODE,
		b.TIME_OFFSET_CALC_S,
		b.RANGE_BIAS_CALC_M,
		b.RANGE_GAIN_CALC,
		b.AZIMUTH_BIAS_CALC_DEG,
		n.RANGE_ERROR_SD_CALC_M,
		n.AZIMUTH_ERROR_SD_CALC_DEG,
		b.ECC_VALUE_CALC_DEG,
		b.ECC_ANGLE_CALC_DEG
	FROM AN_RADAR_BIASES b
	LEFT JOIN AN_RADAR_NOISES n
		ON  b.DS_ID = n.DS_ID
		AND b.RADAR_MODE = n.RADAR_MODE
		AND b.ACTION_ID = n.ACTION_ID
	INNER JOIN LE_DS d ON b.DS_ID = d.DS_ID
	WHERE b.ACTION_ID = 2`

// detectionRatesQuery вероятности обнаружения по радарам в процентах.
// Деление на ноль в MySQL дает NULL.
const detectionRatesQuery = `
	SELECT
		d.DS_NAME AS ds_name,
		r.radar_type_id AS ds_type,
		COUNT(CASE WHEN tra.detection_P = 1 THEN 1 ELSE NULL END) /
		COUNT(CASE WHEN tra.detection_P IN (0, 1) THEN 1 ELSE NULL END) * 100 AS pdP,
		COUNT(CASE WHEN tra.detection_S = 1 THEN 1 ELSE NULL END) /
		COUNT(CASE WHEN tra.detection_S IN (0, 1) THEN 1 ELSE NULL END) * 100 AS pdS,
		COUNT(CASE WHEN tra.detection_M = 1 THEN 1 ELSE NULL END) /
		COUNT(CASE WHEN tra.detection_M IN (0, 1) THEN 1 ELSE NULL END) * 100 AS pdM,
		COUNT(CASE WHEN tra.detection_PS = 1 THEN 1 ELSE NULL END) /
		COUNT(CASE WHEN tra.detection_PS IN (0, 1) THEN 1 ELSE NULL END) * 100 AS pdPS,
		COUNT(CASE WHEN tra.detection_PM = 1 THEN 1 ELSE NULL END) /
		COUNT(CASE WHEN tra.detection_PM IN (0, 1) THEN 1 ELSE NULL END) * 100 AS pdPM
	FROM an_tr_rt_associations tra
	JOIN an_actions_otr a ON tra.ds_id = a.ds_id AND a.action_id = 2
	JOIN sd_radar s ON tra.REC_NUM = s.REC_NUM
	JOIN le_ds d ON s.ds_id = d.ds_id
	JOIN ds_radar r ON s.ds_id = r.ds_id
	GROUP BY d.DS_NAME
	ORDER BY d.DS_NAME`
